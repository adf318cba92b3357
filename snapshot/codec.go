package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/memfs/filesystem"
)

// Node type tags used in the persisted document
const (
	TypeDirectory = "directory"
	TypeFile      = "file"
)

var (
	ErrUnknownFormat = errors.New("unknown snapshot file extension")
	ErrMissingRoot   = errors.New(`snapshot has no "/" entry`)
	ErrRootNotDir    = errors.New("snapshot root is not a directory")
	ErrBadNodeType   = errors.New("unknown node type")
	ErrBadName       = errors.New("invalid node name")
)

// Encoding is the serialization format of a snapshot file
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingYAML
)

// Compression is an optional compression layer around the encoding
type Compression int

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionGzip
)

// Format describes how a snapshot file is laid out on disk
type Format struct {
	Encoding    Encoding
	Compression Compression
}

// FormatFromPath picks the format from the file extension, e.g.
// state.json, state.yaml, state.json.zst, state.yml.gz
func FormatFromPath(path string) (Format, error) {
	var f Format
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".zst":
		f.Compression = CompressionZstd
	case ".gz":
		f.Compression = CompressionGzip
	}
	if f.Compression != CompressionNone {
		path = strings.TrimSuffix(path, filepath.Ext(path))
		ext = strings.ToLower(filepath.Ext(path))
	}

	switch ext {
	case ".json":
		f.Encoding = EncodingJSON
	case ".yaml", ".yml":
		f.Encoding = EncodingYAML
	default:
		return Format{}, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
	return f, nil
}

// nodeDTO is the persisted form of a node: a type tag plus contents, which is
// the file text for files and a name keyed object for directories
type nodeDTO struct {
	Type     string
	Text     string
	Children map[string]*nodeDTO
}

type fileDoc struct {
	Type     string `json:"type" yaml:"type"`
	Contents string `json:"contents" yaml:"contents"`
}

type dirDoc struct {
	Type     string              `json:"type" yaml:"type"`
	Contents map[string]*nodeDTO `json:"contents" yaml:"contents"`
}

func (n *nodeDTO) doc() any {
	if n.Type == TypeFile {
		return fileDoc{Type: n.Type, Contents: n.Text}
	}
	children := n.Children
	if children == nil {
		children = map[string]*nodeDTO{}
	}
	return dirDoc{Type: n.Type, Contents: children}
}

func (n *nodeDTO) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.doc())
}

func (n *nodeDTO) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type     string          `json:"type"`
		Contents json.RawMessage `json:"contents"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	n.Type = raw.Type
	empty := len(raw.Contents) == 0 || string(raw.Contents) == "null"
	switch raw.Type {
	case TypeFile:
		if empty {
			return nil
		}
		return json.Unmarshal(raw.Contents, &n.Text)
	case TypeDirectory:
		n.Children = map[string]*nodeDTO{}
		if empty {
			return nil
		}
		return json.Unmarshal(raw.Contents, &n.Children)
	default:
		return fmt.Errorf("%w: %q", ErrBadNodeType, raw.Type)
	}
}

func (n *nodeDTO) MarshalYAML() (any, error) {
	return n.doc(), nil
}

func (n *nodeDTO) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Type     string    `yaml:"type"`
		Contents yaml.Node `yaml:"contents"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	n.Type = raw.Type
	empty := raw.Contents.Kind == 0 || raw.Contents.Tag == "!!null"
	switch raw.Type {
	case TypeFile:
		if empty {
			return nil
		}
		return raw.Contents.Decode(&n.Text)
	case TypeDirectory:
		n.Children = map[string]*nodeDTO{}
		if empty {
			return nil
		}
		return raw.Contents.Decode(&n.Children)
	default:
		return fmt.Errorf("%w: %q", ErrBadNodeType, raw.Type)
	}
}

func toDTO(n filesystem.Node) *nodeDTO {
	switch n := n.(type) {
	case *filesystem.File:
		return &nodeDTO{Type: TypeFile, Text: n.Content()}
	case *filesystem.Dir:
		dto := &nodeDTO{Type: TypeDirectory, Children: make(map[string]*nodeDTO, n.Len())}
		n.Range(func(name string, child filesystem.Node) bool {
			dto.Children[name] = toDTO(child)
			return true
		})
		return dto
	default:
		return nil
	}
}

// toNode rebuilds the tree, rejecting names the namespace could never hold
func toNode(dto *nodeDTO, path string) (filesystem.Node, error) {
	if dto == nil {
		return nil, fmt.Errorf("%w at %s: null node", ErrBadNodeType, path)
	}
	switch dto.Type {
	case TypeFile:
		return filesystem.NewFile(dto.Text), nil
	case TypeDirectory:
		dir := filesystem.NewDir()
		for name, child := range dto.Children {
			if name == "" || strings.Contains(name, "/") {
				return nil, fmt.Errorf("%w at %s: %q", ErrBadName, path, name)
			}
			node, err := toNode(child, strings.TrimSuffix(path, "/")+"/"+name)
			if err != nil {
				return nil, err
			}
			dir.AddChild(name, node)
		}
		return dir, nil
	default:
		return nil, fmt.Errorf("%w at %s: %q", ErrBadNodeType, path, dto.Type)
	}
}

// Encode serializes the tree rooted at root as {"/": {...}}
func Encode(root *filesystem.Dir, f Format) ([]byte, error) {
	doc := map[string]*nodeDTO{filesystem.RootPath: toDTO(root)}

	var (
		data []byte
		err  error
	)
	switch f.Encoding {
	case EncodingYAML:
		data, err = yaml.Marshal(doc)
	default:
		data, err = json.MarshalIndent(doc, "", "    ")
	}
	if err != nil {
		return nil, err
	}
	return compress(data, f.Compression)
}

// Decode parses and validates a whole snapshot. Nothing is returned unless
// the entire document is well formed.
func Decode(data []byte, f Format) (*filesystem.Dir, error) {
	data, err := decompress(data, f.Compression)
	if err != nil {
		return nil, err
	}

	var doc map[string]*nodeDTO
	switch f.Encoding {
	case EncodingYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, err
	}

	rootDTO, ok := doc[filesystem.RootPath]
	if !ok || rootDTO == nil {
		return nil, ErrMissingRoot
	}
	if rootDTO.Type != TypeDirectory {
		return nil, ErrRootNotDir
	}
	root, err := toNode(rootDTO, filesystem.RootPath)
	if err != nil {
		return nil, err
	}
	return root.(*filesystem.Dir), nil
}

func compress(data []byte, c Compression) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	switch c {
	case CompressionZstd:
		enc, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		w = enc
	case CompressionGzip:
		w = gzip.NewWriter(&buf)
	default:
		return data, nil
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionZstd:
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return io.ReadAll(dec)
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return data, nil
	}
}
