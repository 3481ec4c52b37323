package converter

import (
	"io/ioutil"
	"log"

	"github.com/binzume/vmorfconv/gltfutil"
	"github.com/binzume/vmorfconv/morph"
	"github.com/binzume/vmorfconv/shapekey"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	yaml "gopkg.in/yaml.v2"
)

type MorphToGLTFOption struct {
	Scale   float32  `yaml:"scale"`
	Bundle  string   `yaml:"bundle"`
	Normals bool     `yaml:"normals"`
	Flexes  []string `yaml:"flexes"` // empty: all flexes

	// NameLength limits target names, 0: unlimited.
	NameLength int `yaml:"nameLength"`

	// Bake adds this flex to the base positions instead of exporting it as a target.
	Bake string `yaml:"bake"`
}

// LoadOptionFile reads options from a YAML (or JSON) file.
func LoadOptionFile(path string) (*MorphToGLTFOption, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var opt MorphToGLTFOption
	if err := yaml.Unmarshal(data, &opt); err != nil {
		return nil, errors.Wrapf(err, "option: %s", path)
	}
	return &opt, nil
}

type morphToGltf struct {
	*MorphToGLTFOption
	Names *shapekey.NameTable
}

func NewMorphToGLTFConverter(options *MorphToGLTFOption) *morphToGltf {
	if options == nil {
		options = &MorphToGLTFOption{}
	}
	if options.Scale == 0 {
		options.Scale = 1.0
	}
	if options.Bundle == "" {
		options.Bundle = morph.BundlePositionSpeed
	}
	return &morphToGltf{
		MorphToGLTFOption: options,
		Names:             shapekey.NewNameTable(options.NameLength),
	}
}

// Convert adds every flex of dec as a morph target to the meshes of doc.
// Vertex ids of the morph set run over all POSITION accessors in document order.
func (c *morphToGltf) Convert(doc *gltf.Document, dec *morph.Decoder, tex morph.Texture) error {
	positions := shapekey.NewBuilder(dec, tex)
	positions.Bundle = c.Bundle
	if !positions.Available() {
		log.Println("Morph bundle not found:", c.Bundle)
		return nil
	}
	var normals *shapekey.Builder
	if c.Normals {
		normals = shapekey.NewBuilder(dec, tex)
		normals.Bundle = morph.BundleNormalWrinkle
		if !normals.Available() {
			log.Println("Morph bundle not found:", normals.Bundle)
			normals = nil
		}
	}

	blocks, err := gltfutil.CollectVertices(doc)
	if err != nil {
		return err
	}

	if c.Bake != "" {
		if _, ok := dec.MorphSet().Entry(c.Bake); !ok {
			log.Println("Flex to bake not found:", c.Bake)
		}
	}

	skip := map[int]bool{}
	for mi, mesh := range doc.Meshes {
		if hasTargets(mesh) {
			log.Println("Mesh already has morph targets:", mesh.Name)
			skip[mi] = true
		}
	}

	targetNames := map[int][]string{}
	for _, b := range blocks {
		mesh := doc.Meshes[b.Mesh]
		if skip[b.Mesh] {
			continue
		}
		keys, err := positions.Build(b.Offset, len(b.Positions))
		if err != nil {
			return errors.Wrapf(err, "mesh %q", mesh.Name)
		}
		var normalKeys map[string]*shapekey.ShapeKey
		if normals != nil {
			nk, err := normals.Build(b.Offset, len(b.Positions))
			if err != nil {
				return errors.Wrapf(err, "mesh %q", mesh.Name)
			}
			normalKeys = map[string]*shapekey.ShapeKey{}
			for _, k := range nk {
				normalKeys[k.Name] = k
			}
		}

		var targets []map[string]uint32
		var names []string
		for _, k := range keys {
			if k.Name == c.Bake {
				if err := c.bake(doc, mesh, b, k); err != nil {
					return errors.Wrapf(err, "mesh %q", mesh.Name)
				}
				continue
			}
			if !c.selected(k.Name) {
				continue
			}
			target := map[string]uint32{
				"POSITION": modeler.WritePosition(doc, toArray(k.Deltas, c.Scale)),
			}
			if nk, ok := normalKeys[k.Name]; ok {
				target["NORMAL"] = modeler.WriteNormal(doc, toArray(nk.Deltas, 1))
			}
			targets = append(targets, target)
			names = append(names, c.targetName(k.Name))
		}
		if len(targets) == 0 {
			continue
		}
		for _, pi := range b.Primitives {
			mesh.Primitives[pi].Targets = targets
		}
		targetNames[b.Mesh] = names
	}

	for mi, names := range targetNames {
		mesh := doc.Meshes[mi]
		mesh.Weights = make([]float32, len(names))
		if extras, ok := mesh.Extras.(map[string]interface{}); ok {
			extras["targetNames"] = names
		} else {
			mesh.Extras = map[string]interface{}{"targetNames": names}
		}
	}
	return nil
}

func (c *morphToGltf) selected(name string) bool {
	if len(c.Flexes) == 0 {
		return true
	}
	for _, f := range c.Flexes {
		if f == name {
			return true
		}
	}
	return false
}

func (c *morphToGltf) targetName(name string) string {
	short := c.Names.Add(name)
	if c.NameLength <= 0 {
		return name
	}
	return short
}

// bake writes base+delta as the new POSITION of the block's primitives.
func (c *morphToGltf) bake(doc *gltf.Document, mesh *gltf.Mesh, b *gltfutil.VertexBlock, k *shapekey.ShapeKey) error {
	base := make([]mgl32.Vec3, len(b.Positions))
	for i, p := range b.Positions {
		base[i] = mgl32.Vec3(p)
	}
	deltas := make([]mgl32.Vec3, len(k.Deltas))
	for i, d := range k.Deltas {
		deltas[i] = d.Mul(c.Scale)
	}
	pos, err := shapekey.Apply(base, deltas)
	if err != nil {
		return err
	}
	acc := modeler.WritePosition(doc, toArray(pos, 1))
	for _, pi := range b.Primitives {
		mesh.Primitives[pi].Attributes["POSITION"] = acc
	}
	return nil
}

func hasTargets(mesh *gltf.Mesh) bool {
	for _, p := range mesh.Primitives {
		if len(p.Targets) > 0 {
			return true
		}
	}
	return false
}

func toArray(v []mgl32.Vec3, scale float32) [][3]float32 {
	a := make([][3]float32, len(v))
	for i := range v {
		a[i] = [3]float32{v[i][0] * scale, v[i][1] * scale, v[i][2] * scale}
	}
	return a
}
