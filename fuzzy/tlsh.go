package fuzzy

import (
	"bufio"
	"os"

	"github.com/glaslos/tlsh"
)

// TLSHHasher produces TLSH locality-sensitive digests. TLSH needs a minimum
// amount of input; callers gate on file size before invoking it.
type TLSHHasher struct{}

func (h TLSHHasher) Name() string {
	return "tlsh"
}

func (h TLSHHasher) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash, err := tlsh.HashReader(bufio.NewReader(f))
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

func init() {
	Register(TLSHHasher{})
}
