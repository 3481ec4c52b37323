package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/binzume/vmorfconv/atlas"
	"github.com/binzume/vmorfconv/morph"
	"github.com/binzume/vmorfconv/shapekey"
	"github.com/pkg/errors"
)

func loadTexture(path, rawSize string) (*morph.FloatImage, error) {
	if rawSize == "" {
		return atlas.Load(path)
	}
	var w, h int
	if _, err := fmt.Sscanf(rawSize, "%dx%d", &w, &h); err != nil {
		return nil, errors.Wrapf(err, "invalid raw size %q", rawSize)
	}
	return atlas.LoadRaw(path, w, h, 4)
}

func saveRaw(img *morph.FloatImage, path string) error {
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()
	return binary.Write(w, binary.LittleEndian, img.Pix)
}

func saveNameTable(names *shapekey.NameTable, path string) error {
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()
	_, err = names.WriteTo(w)
	return err
}
