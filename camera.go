package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type Movement int

const (
	MoveForward Movement = iota
	MoveBackward
	MoveLeft
	MoveRight
	MoveUp
	MoveDown
)

func radian(angle float32) float32 {
	return mgl32.DegToRad(angle)
}

func cos(a float32) float32 {
	return float32(math.Cos(float64(a)))
}

func sin(a float32) float32 {
	return float32(math.Sin(float64(a)))
}

// Camera is a free flying viewer. Rx is yaw and Ry is pitch, both in degrees.
type Camera struct {
	mgl32.Vec3
	Rx, Ry float32
	Sens   float32
	fast   bool
}

func NewCamera(pos mgl32.Vec3) *Camera {
	return &Camera{
		Vec3: pos,
		Rx:   -90,
		Ry:   -20,
		Sens: 0.14,
	}
}

func (c *Camera) Pos() mgl32.Vec3 {
	return c.Vec3
}

func (c *Camera) Front() mgl32.Vec3 {
	front := mgl32.Vec3{
		cos(radian(c.Ry)) * cos(radian(c.Rx)),
		sin(radian(c.Ry)),
		cos(radian(c.Ry)) * sin(radian(c.Rx)),
	}
	return front.Normalize()
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.Front().Cross(mgl32.Vec3{0, 1, 0}).Normalize()
}

func (c *Camera) Up() mgl32.Vec3 {
	return c.Right().Cross(c.Front()).Normalize()
}

func (c *Camera) FlipFast() {
	c.fast = !c.fast
}

func (c *Camera) Move(dir Movement, delta float32) {
	if c.fast {
		delta = 5 * delta
	}
	switch dir {
	case MoveForward:
		c.Vec3 = c.Add(c.Front().Mul(delta))
	case MoveBackward:
		c.Vec3 = c.Sub(c.Front().Mul(delta))
	case MoveLeft:
		c.Vec3 = c.Sub(c.Right().Mul(delta))
	case MoveRight:
		c.Vec3 = c.Add(c.Right().Mul(delta))
	case MoveUp:
		c.Vec3 = c.Add(mgl32.Vec3{0, delta, 0})
	case MoveDown:
		c.Vec3 = c.Sub(mgl32.Vec3{0, delta, 0})
	}
}

func (c *Camera) ChangeAngle(dx, dy float32) {
	if mgl32.Abs(dx) > 200 || mgl32.Abs(dy) > 200 {
		return
	}
	c.Rx += dx * c.Sens
	c.Ry += dy * c.Sens
	if c.Ry > 89 {
		c.Ry = 89
	}
	if c.Ry < -89 {
		c.Ry = -89
	}
}

func (c *Camera) Matrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Vec3, c.Add(c.Front()), c.Up())
}
