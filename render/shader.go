package render

var terrainVertexSource = `
#version 330 core

in vec3 pos;
in vec3 normal;
in vec2 tex;

uniform mat4 matrix;
uniform vec3 camera;
uniform float fogdis;

out vec3 fnormal;
out vec2 ftex;
out float fog;
out float fheight;

void main() {
	gl_Position = matrix * vec4(pos, 1.0);
	fnormal = normal;
	ftex = tex;
	fheight = pos.y;
	float d = distance(camera.xz, pos.xz);
	fog = clamp(pow(d / fogdis, 4.0), 0.0, 1.0);
}
` + "\x00"

var terrainFragmentSource = `
#version 330 core

in vec3 fnormal;
in vec2 ftex;
in float fog;
in float fheight;

uniform float heightscale;

out vec4 color;

const vec3 light = normalize(vec3(0.4, 1.0, 0.3));
const vec3 sky = vec3(0.57, 0.71, 0.77);
const vec3 low = vec3(0.34, 0.52, 0.25);
const vec3 high = vec3(0.62, 0.58, 0.52);

void main() {
	float t = clamp(fheight / heightscale * 0.5 + 0.5, 0.0, 1.0);
	vec3 base = mix(low, high, t);
	float diffuse = max(dot(normalize(fnormal), light), 0.0) * 0.8 + 0.2;
	color = vec4(mix(base * diffuse, sky, fog), 1.0);
}
` + "\x00"
