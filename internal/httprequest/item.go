package httprequest

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// Item is one input record.
type Item struct {
	JSON   map[string]any         `json:"json"`
	Binary map[string]*BinaryData `json:"binary,omitempty"`
}

// BinaryData is a file attached to a record.
type BinaryData struct {
	Data          []byte `json:"data"`
	MimeType      string `json:"mimeType"`
	FileName      string `json:"fileName,omitempty"`
	FileExtension string `json:"fileExtension,omitempty"`
	FileSize      int    `json:"fileSize"`
}

// PairedItem links an output record to the input record that produced it.
type PairedItem struct {
	Item int `json:"item"`
}

// OutputItem is one normalized output record.
type OutputItem struct {
	JSON       map[string]any         `json:"json"`
	Binary     map[string]*BinaryData `json:"binary,omitempty"`
	PairedItem PairedItem             `json:"pairedItem"`
}

// NewBinaryData wraps raw bytes, filling in whatever metadata can be inferred.
func NewBinaryData(data []byte, fileName, mimeType string) *BinaryData {
	if mimeType == "" && fileName != "" {
		mimeType = mime.TypeByExtension(filepath.Ext(fileName))
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mt
	}

	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	if ext == "" {
		if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
			ext = strings.TrimPrefix(exts[0], ".")
		}
	}
	return &BinaryData{
		Data:          data,
		MimeType:      mimeType,
		FileName:      fileName,
		FileExtension: ext,
		FileSize:      len(data),
	}
}

// AssertBinary returns the named attachment or a configuration error naming the field.
func (it Item) AssertBinary(field string, itemIndex int) (*BinaryData, error) {
	if it.Binary == nil {
		return nil, configErr("inputDataFieldName", itemIndex, "the item has no binary data")
	}
	bin, ok := it.Binary[field]
	if !ok || bin == nil {
		return nil, configErr("inputDataFieldName", itemIndex, fmt.Sprintf("the item has no binary field %q", field))
	}
	return bin, nil
}
