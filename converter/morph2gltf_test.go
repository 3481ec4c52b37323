package converter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/binzume/vmorfconv/morph"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// 5 vertices: "up" moves vertex i by (0, i, 0), "out" by (1, 0, 0).
func testMorph() (*morph.Decoder, morph.Texture) {
	tex := morph.NewFloatImage(10, 1, 4)
	for x := 0; x < 5; x++ {
		tex.SetTexel(x, 0, mgl32.Vec4{0, float32(x), 0, 0})
		tex.SetTexel(x+5, 0, mgl32.Vec4{1, 0, 0, 0})
	}
	rect := func(u float32) *morph.MorphRect {
		return &morph.MorphRect{
			UWidthSrc:  0.5,
			VHeightSrc: 1,
			Bundles: []*morph.MorphBundle{
				{ULeftSrc: u, Ranges: mgl32.Vec4{1, 1, 1, 1}},
				{ULeftSrc: u, Ranges: mgl32.Vec4{0, 0, 0, 0}, Offsets: mgl32.Vec4{0, 0, 1, 0}},
			},
		}
	}
	set := &morph.MorphSet{
		LookupType:   morph.LookupVertexID,
		EncodingType: morph.EncodingObjectSpace,
		BundleTypes:  []string{morph.BundlePositionSpeed, morph.BundleNormalWrinkle},
		Width:        5,
		Height:       1,
		Entries: []*morph.MorphEntry{
			{Name: "up", Rects: []*morph.MorphRect{rect(0)}},
			{Name: "out", Rects: []*morph.MorphRect{rect(0.5)}},
		},
	}
	return morph.NewDecoder(set), tex
}

func testDocument() *gltf.Document {
	doc := gltf.NewDocument()
	a := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}})
	b := modeler.WritePosition(doc, [][3]float32{{0, 1, 0}, {0, 2, 0}, {0, 3, 0}})
	doc.Meshes = []*gltf.Mesh{
		{Name: "body", Primitives: []*gltf.Primitive{
			{Attributes: map[string]uint32{"POSITION": a}},
			{Attributes: map[string]uint32{"POSITION": a}},
		}},
		{Name: "head", Primitives: []*gltf.Primitive{
			{Attributes: map[string]uint32{"POSITION": b}},
		}, Extras: map[string]interface{}{"source": "test"}},
	}
	return doc
}

func readTarget(t *testing.T, doc *gltf.Document, acc uint32) [][3]float32 {
	t.Helper()
	pos, err := modeler.ReadPosition(doc, doc.Accessors[acc], [][3]float32{})
	if err != nil {
		t.Fatal(err)
	}
	return pos
}

func TestConvert(t *testing.T) {
	dec, tex := testMorph()
	doc := testDocument()
	conv := NewMorphToGLTFConverter(&MorphToGLTFOption{Scale: 2})
	if err := conv.Convert(doc, dec, tex); err != nil {
		t.Fatal(err)
	}

	body, head := doc.Meshes[0], doc.Meshes[1]
	for _, p := range body.Primitives {
		if len(p.Targets) != 2 {
			t.Fatal("body targets", len(p.Targets))
		}
	}
	if len(head.Weights) != 2 || head.Weights[0] != 0 {
		t.Error("weights", head.Weights)
	}
	names, _ := head.Extras.(map[string]interface{})["targetNames"].([]string)
	if len(names) != 2 || names[0] != "up" || names[1] != "out" {
		t.Error("targetNames", head.Extras)
	}
	if head.Extras.(map[string]interface{})["source"] != "test" {
		t.Error("extras should be kept", head.Extras)
	}

	// head starts at global vertex 2
	up := readTarget(t, doc, head.Primitives[0].Targets[0]["POSITION"])
	want := [][3]float32{{0, 4, 0}, {0, 6, 0}, {0, 8, 0}}
	for i := range want {
		if up[i] != want[i] {
			t.Error("up", i, up[i])
		}
	}
	out := readTarget(t, doc, body.Primitives[0].Targets[1]["POSITION"])
	if out[1] != [3]float32{2, 0, 0} {
		t.Error("out", out)
	}
	if _, ok := body.Primitives[0].Targets[0]["NORMAL"]; ok {
		t.Error("normals are disabled")
	}
}

func TestConvertNormals(t *testing.T) {
	dec, tex := testMorph()
	doc := testDocument()
	conv := NewMorphToGLTFConverter(&MorphToGLTFOption{Normals: true, Flexes: []string{"out"}, NameLength: 2})
	if err := conv.Convert(doc, dec, tex); err != nil {
		t.Fatal(err)
	}
	targets := doc.Meshes[1].Primitives[0].Targets
	if len(targets) != 1 {
		t.Fatal("targets", len(targets))
	}
	n := readTarget(t, doc, targets[0]["NORMAL"])
	if n[0] != [3]float32{0, 0, 1} {
		t.Error("normal", n)
	}
	names := doc.Meshes[0].Extras.(map[string]interface{})["targetNames"].([]string)
	if names[0] != "ou" {
		t.Error("name length", names)
	}
}

func TestConvertShortNames(t *testing.T) {
	dec, tex := testMorph()
	dec.MorphSet().Entries[0].Name = "mouth_left"
	dec.MorphSet().Entries[1].Name = "mouth_right"
	doc := testDocument()
	conv := NewMorphToGLTFConverter(&MorphToGLTFOption{NameLength: 5})
	if err := conv.Convert(doc, dec, tex); err != nil {
		t.Fatal(err)
	}
	names := doc.Meshes[1].Extras.(map[string]interface{})["targetNames"].([]string)
	if len(names) != 2 || names[0] != "mouth" || names[1] != "mout1" {
		t.Error("targetNames", names)
	}
	if s, _ := conv.Names.Short("mouth_right"); s != "mout1" {
		t.Error("name table", s)
	}
}

func TestConvertExistingTargets(t *testing.T) {
	dec, tex := testMorph()
	doc := gltf.NewDocument()
	a := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}})
	b := modeler.WritePosition(doc, [][3]float32{{0, 1, 0}, {0, 2, 0}, {0, 3, 0}})
	doc.Meshes = []*gltf.Mesh{{Name: "face", Weights: []float32{0}, Primitives: []*gltf.Primitive{
		{Attributes: map[string]uint32{"POSITION": a}, Targets: []map[string]uint32{{"POSITION": a}}},
		{Attributes: map[string]uint32{"POSITION": b}},
	}}}
	if err := NewMorphToGLTFConverter(nil).Convert(doc, dec, tex); err != nil {
		t.Fatal(err)
	}
	face := doc.Meshes[0]
	if len(face.Primitives[0].Targets) != 1 || len(face.Primitives[1].Targets) != 0 {
		t.Error("targets", len(face.Primitives[0].Targets), len(face.Primitives[1].Targets))
	}
	if len(face.Weights) != 1 || face.Extras != nil {
		t.Error("mesh should be untouched", face.Weights, face.Extras)
	}
}

func TestConvertBake(t *testing.T) {
	dec, tex := testMorph()
	doc := testDocument()
	conv := NewMorphToGLTFConverter(&MorphToGLTFOption{Bake: "out", Scale: 2})
	if err := conv.Convert(doc, dec, tex); err != nil {
		t.Fatal(err)
	}
	head := doc.Meshes[1]
	pos := readTarget(t, doc, head.Primitives[0].Attributes["POSITION"])
	want := [][3]float32{{2, 1, 0}, {2, 2, 0}, {2, 3, 0}}
	for i := range want {
		if pos[i] != want[i] {
			t.Error("baked position", i, pos[i])
		}
	}
	body := doc.Meshes[0]
	if body.Primitives[0].Attributes["POSITION"] != body.Primitives[1].Attributes["POSITION"] {
		t.Error("primitives sharing vertices should share the baked accessor")
	}
	names := head.Extras.(map[string]interface{})["targetNames"].([]string)
	if len(names) != 1 || names[0] != "up" || len(head.Primitives[0].Targets) != 1 {
		t.Error("baked flex should not be a target", names)
	}
}

func TestConvertNoBundle(t *testing.T) {
	dec, tex := testMorph()
	doc := testDocument()
	conv := NewMorphToGLTFConverter(&MorphToGLTFOption{Bundle: "MORPH_BUNDLE_TYPE_UNKNOWN"})
	if err := conv.Convert(doc, dec, tex); err != nil {
		t.Fatal(err)
	}
	if len(doc.Meshes[0].Primitives[0].Targets) != 0 {
		t.Error("no targets expected")
	}
}

func TestConvertTooManyVertices(t *testing.T) {
	dec, tex := testMorph()
	doc := testDocument()
	extra := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{Primitives: []*gltf.Primitive{{Attributes: map[string]uint32{"POSITION": extra}}}})
	if err := NewMorphToGLTFConverter(nil).Convert(doc, dec, tex); err == nil {
		t.Error("vertex beyond morph data should fail")
	}
}

func TestLoadOptionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vmorfconv.yaml")
	conf := "scale: 0.0254\nnormals: true\nflexes: [blink, smile]\n"
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}
	opt, err := LoadOptionFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if opt.Scale != 0.0254 || !opt.Normals || len(opt.Flexes) != 2 {
		t.Error("option", opt)
	}
	conv := NewMorphToGLTFConverter(opt)
	if conv.Bundle != morph.BundlePositionSpeed {
		t.Error("default bundle", conv.Bundle)
	}
}
