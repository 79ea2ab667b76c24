// Package scene loads 3D scenes into a single triangle mesh and writes glTF
// 2.0 output. It backs the in-process conversion strategy: every mesh
// primitive reachable from the default scene is flattened with its world
// transform applied, duplicate faces and unreferenced vertices are removed,
// and the result is written as .glb or .gltf.
//
// glTF and GLB input is read with github.com/qmuntal/gltf; Wavefront OBJ has
// a small reader of its own. Other formats, FBX included, are rejected with
// ErrUnsupportedFormat.
package scene
