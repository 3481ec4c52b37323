package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/binzume/vmorfconv/atlas"
	"github.com/binzume/vmorfconv/converter"
	"github.com/binzume/vmorfconv/gltfutil"
	"github.com/binzume/vmorfconv/morph"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

func defaultOutputFile(input string) string {
	ext := filepath.Ext(input)
	return input[0:len(input)-len(ext)] + "_morph.glb"
}

func listMorphs(dec *morph.Decoder) {
	set := dec.MorphSet()
	fmt.Printf("Size: %dx%d\n", set.Width, set.Height)
	for i, b := range set.BundleTypes {
		fmt.Printf("Bundle %d: %s\n", i, b)
	}
	for _, e := range set.Entries {
		fmt.Printf("Flex: %q rects=%d\n", e.Name, len(e.Rects))
	}
}

func decodeFlex(dec *morph.Decoder, tex morph.Texture, name, bundle, output string) error {
	bundleID, ok := dec.GetBundleIndex(bundle)
	if !ok {
		return errors.Wrapf(morph.ErrInvalidArgument, "bundle not found: %v", bundle)
	}
	data, ok, err := dec.Decode(name, bundleID, tex)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(morph.ErrFlexNotFound, "%q", name)
	}
	if strings.ToLower(filepath.Ext(output)) == ".raw" {
		return saveRaw(data, output)
	}
	return atlas.SavePNG(data, output)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] morph.yaml atlas.png [input.glb [output.glb]]\n", os.Args[0])
		flag.PrintDefaults()
	}
	list := flag.Bool("list", false, "list flexes and bundles")
	decode := flag.String("decode", "", "flex name to decode")
	out := flag.String("out", "", "output file for -decode (.png or .raw)")
	bundle := flag.String("bundle", "", "bundle type (default: "+morph.BundlePositionSpeed+")")
	scale := flag.Float64("scale", 0, "0:1.0")
	normals := flag.Bool("normals", false, "add NORMAL targets from "+morph.BundleNormalWrinkle)
	flexes := flag.String("flexes", "", "comma separated flex names to export")
	confFile := flag.String("config", "", "option file (.yaml)")
	names := flag.String("names", "", "write short->full flex name table")
	nameLen := flag.Int("namelen", 0, "max target name length")
	bake := flag.String("bake", "", "flex to apply to the base mesh")
	rawSize := flag.String("raw", "", "atlas is raw float32 RGBA: WIDTHxHEIGHT")
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		return
	}

	set, err := morph.Load(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	dec := morph.NewDecoder(set)
	if err := set.CheckFormat(); err != nil {
		log.Fatal(err)
	}

	if *list || flag.NArg() < 2 {
		listMorphs(dec)
		return
	}

	tex, err := loadTexture(flag.Arg(1), *rawSize)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Atlas: %dx%d", tex.Width, tex.Height)

	if *decode != "" {
		b := *bundle
		if b == "" {
			b = morph.BundlePositionSpeed
		}
		output := *out
		if output == "" {
			output = *decode + ".png"
		}
		if err := decodeFlex(dec, tex, *decode, b, output); err != nil {
			log.Fatal(err)
		}
		log.Print("out: ", output)
		return
	}

	if flag.NArg() < 3 {
		flag.Usage()
		return
	}
	input := flag.Arg(2)
	output := flag.Arg(3)
	if output == "" {
		output = defaultOutputFile(input)
	}

	opt := &converter.MorphToGLTFOption{}
	if *confFile != "" {
		if opt, err = converter.LoadOptionFile(*confFile); err != nil {
			log.Fatal(err)
		}
	}
	if *bundle != "" {
		opt.Bundle = *bundle
	}
	if *scale != 0 {
		opt.Scale = float32(*scale)
	}
	if *normals {
		opt.Normals = true
	}
	if *flexes != "" {
		opt.Flexes = strings.Split(*flexes, ",")
	}
	if *nameLen > 0 {
		opt.NameLength = *nameLen
	}
	if *bake != "" {
		opt.Bake = *bake
	}

	doc, err := gltfutil.Load(input)
	if err != nil {
		log.Fatal(err)
	}
	conv := converter.NewMorphToGLTFConverter(opt)
	if err := conv.Convert(doc, dec, tex); err != nil {
		log.Fatal(err)
	}
	if *names != "" {
		if err := saveNameTable(conv.Names, *names); err != nil {
			log.Fatal(err)
		}
	}

	log.Print("out: ", output)
	if err := gltf.SaveBinary(doc, output); err != nil {
		log.Fatal(err)
	}
}
