package scanner

import (
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"

	"varanus/utils"
)

type signature struct {
	mimeType    string
	ext         string
	description string
}

// probeSignature sniffs the file's magic bytes. When the content is not
// recognized, the MIME column falls back to an extension-based guess but the
// signature extension stays empty, so an unknown signature can never by
// itself produce a mismatch.
func probeSignature(path string) (signature, error) {
	file, err := os.Open(path)
	if err != nil {
		return signature{}, err
	}
	defer file.Close()

	buf := make([]byte, 261)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return signature{}, err
	}

	kind, err := filetype.Match(buf[:n])
	if err != nil {
		return signature{}, err
	}
	if kind == filetype.Unknown || kind.MIME.Value == "" {
		return signature{
			mimeType: mime.TypeByExtension(filepath.Ext(path)),
		}, nil
	}
	return signature{
		mimeType:    kind.MIME.Value,
		ext:         utils.NormalizeExt(kind.Extension),
		description: kind.MIME.Value,
	}, nil
}

// extMismatch applies the conservative mismatch policy: absence of signature
// information never flags a file, while a known signature flags both a
// missing and a differing on-disk extension.
func extMismatch(diskExt, sigExt string) bool {
	d := utils.NormalizeExt(diskExt)
	s := utils.NormalizeExt(sigExt)
	if d == "" && s == "" {
		return false
	}
	if d != "" && s == "" {
		return false
	}
	return d != s
}
