// Package metadata pulls embedded document properties (EXIF, PDF info, DOCX
// core properties) out of files whose signature identifies a supported type.
// Extraction is best-effort: a malformed document yields no metadata, never
// an error.
package metadata

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"os"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rwcarlsen/goexif/exif"
)

type extractor func(path string, maxBytes int64) map[string]interface{}

var extractorByMIME = map[string]extractor{
	"image/jpeg":      extractEXIF,
	"image/png":       extractEXIF,
	"application/pdf": extractPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": extractDOCX,
}

// Extract returns embedded metadata for a sniffed MIME type, or nil when the
// type is unsupported or the document yields nothing. maxBytes caps how much
// of the file a parser may consume (0 means unlimited).
func Extract(path, mimeType string, maxBytes int64) map[string]interface{} {
	extract, ok := extractorByMIME[mimeType]
	if !ok {
		return nil
	}
	meta := extract(path, maxBytes)
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func extractEXIF(path string, maxBytes int64) map[string]interface{} {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var reader io.Reader = f
	if maxBytes > 0 {
		reader = io.LimitReader(f, maxBytes)
	}
	x, err := exif.Decode(reader)
	if err != nil {
		return nil
	}

	meta := make(map[string]interface{})
	if tm, err := x.DateTime(); err == nil {
		meta["datetime"] = tm.Format(time.RFC3339)
	}
	for key, tag := range map[string]exif.FieldName{
		"make":     exif.Make,
		"model":    exif.Model,
		"software": exif.Software,
	} {
		if value, err := x.Get(tag); err == nil {
			meta[key] = value.String()
		}
	}
	return meta
}

func extractPDF(path string, maxBytes int64) map[string]interface{} {
	if maxBytes > 0 {
		info, err := os.Stat(path)
		if err != nil || info.Size() > maxBytes {
			return nil
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	info, err := api.PDFInfo(f, path, nil, false, nil)
	if err != nil {
		return nil
	}

	meta := make(map[string]interface{})
	for key, value := range map[string]string{
		"title":    info.Title,
		"author":   info.Author,
		"creator":  info.Creator,
		"producer": info.Producer,
	} {
		if value != "" {
			meta[key] = value
		}
	}
	if info.PageCount > 0 {
		meta["pages"] = info.PageCount
	}
	return meta
}

// docx core properties live in docProps/core.xml inside the zip container.
func extractDOCX(path string, maxBytes int64) map[string]interface{} {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil
	}
	defer r.Close()

	var core *zip.File
	for _, f := range r.File {
		if f.Name == "docProps/core.xml" {
			core = f
			break
		}
	}
	if core == nil {
		return nil
	}
	if maxBytes > 0 && core.UncompressedSize64 > uint64(maxBytes) {
		return nil
	}

	rc, err := core.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()

	var props struct {
		Title          string `xml:"title"`
		Subject        string `xml:"subject"`
		Creator        string `xml:"creator"`
		Keywords       string `xml:"keywords"`
		Description    string `xml:"description"`
		LastModifiedBy string `xml:"lastModifiedBy"`
		Revision       string `xml:"revision"`
	}
	var reader io.Reader = rc
	if maxBytes > 0 {
		reader = io.LimitReader(rc, maxBytes)
	}
	if err := xml.NewDecoder(reader).Decode(&props); err != nil {
		return nil
	}

	meta := make(map[string]interface{})
	for key, value := range map[string]string{
		"title":            props.Title,
		"subject":          props.Subject,
		"creator":          props.Creator,
		"keywords":         props.Keywords,
		"description":      props.Description,
		"last_modified_by": props.LastModifiedBy,
		"revision":         props.Revision,
	} {
		if value != "" {
			meta[key] = value
		}
	}
	return meta
}
