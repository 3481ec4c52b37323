package morph

import (
	"io"
	"io/ioutil"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	yaml "gopkg.in/yaml.v2"
)

// MorphSetData_t as dumped from a vmorf DATA block (KV3 to JSON/YAML).
type morphSetData struct {
	LookupType   string      `yaml:"m_nLookupType"`
	EncodingType string      `yaml:"m_nEncodingType"`
	BundleTypes  []string    `yaml:"m_bundleTypes"`
	Width        int         `yaml:"m_nWidth"`
	Height       int         `yaml:"m_nHeight"`
	MorphDatas   []morphData `yaml:"m_morphDatas"`
}

type morphData struct {
	Name           string          `yaml:"m_name"`
	MorphRectDatas []morphRectData `yaml:"m_morphRectDatas"`
}

type morphRectData struct {
	XLeftDst    int               `yaml:"m_nXLeftDst"`
	YTopDst     int               `yaml:"m_nYTopDst"`
	UWidthSrc   float32           `yaml:"m_flUWidthSrc"`
	VHeightSrc  float32           `yaml:"m_flVHeightSrc"`
	BundleDatas []morphBundleData `yaml:"m_bundleDatas"`
}

type morphBundleData struct {
	ULeftSrc float32   `yaml:"m_flULeftSrc"`
	VTopSrc  float32   `yaml:"m_flVTopSrc"`
	Ranges   []float32 `yaml:"m_ranges"`
	Offsets  []float32 `yaml:"m_offsets"`
}

// Load reads a MorphSet dump from path.
func Load(path string) (*MorphSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	set, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "morph: %s", path)
	}
	return set, nil
}

// Parse reads a MorphSetData_t dump in YAML or JSON.
// Input starting with a UTF-16 or UTF-8 byte order mark is transcoded to UTF-8.
func Parse(r io.Reader) (*MorphSet, error) {
	data, err := ioutil.ReadAll(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return nil, err
	}
	var src morphSetData
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, errors.Wrap(err, "morph: parse")
	}

	set := &MorphSet{
		LookupType:   LookupType(src.LookupType),
		EncodingType: EncodingType(src.EncodingType),
		BundleTypes:  src.BundleTypes,
		Width:        src.Width,
		Height:       src.Height,
	}
	if set.LookupType == "" {
		set.LookupType = LookupVertexID
	}
	if set.EncodingType == "" {
		set.EncodingType = EncodingObjectSpace
	}
	if set.Width < 0 || set.Height < 0 {
		return nil, errors.Errorf("morph: invalid size %dx%d", set.Width, set.Height)
	}

	for _, md := range src.MorphDatas {
		entry := &MorphEntry{Name: md.Name}
		for i, rd := range md.MorphRectDatas {
			rect := &MorphRect{
				UWidthSrc:  rd.UWidthSrc,
				VHeightSrc: rd.VHeightSrc,
				XLeftDst:   rd.XLeftDst,
				YTopDst:    rd.YTopDst,
			}
			for j, bd := range rd.BundleDatas {
				ranges, err := toVec4(bd.Ranges)
				if err != nil {
					return nil, errors.Wrapf(err, "morph: %q rect %d bundle %d m_ranges", md.Name, i, j)
				}
				offsets, err := toVec4(bd.Offsets)
				if err != nil {
					return nil, errors.Wrapf(err, "morph: %q rect %d bundle %d m_offsets", md.Name, i, j)
				}
				rect.Bundles = append(rect.Bundles, &MorphBundle{
					ULeftSrc: bd.ULeftSrc,
					VTopSrc:  bd.VTopSrc,
					Ranges:   ranges,
					Offsets:  offsets,
				})
			}
			entry.Rects = append(entry.Rects, rect)
		}
		set.Entries = append(set.Entries, entry)
	}
	return set, nil
}

func toVec4(v []float32) (mgl32.Vec4, error) {
	if len(v) != 4 {
		return mgl32.Vec4{}, errors.Errorf("want 4 components, got %d", len(v))
	}
	return mgl32.Vec4{v[0], v[1], v[2], v[3]}, nil
}
