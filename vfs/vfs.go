package vfs

import (
	"io"
	"os"
)

// File is an opened container. Random access is needed by the netCDF
// readers, the sequential reader by format sniffing.
type File interface {
	io.Reader
	io.ReaderAt
	io.WriterAt
	io.Closer
}

type Opener interface {
	Open(name string) (File, error)
	Exists(name string) (bool, error)
}

type LocalOSOpener struct {
}

func (o LocalOSOpener) Open(name string) (File, error) {
	return os.Open(name)
}

func (o LocalOSOpener) Exists(name string) (bool, error) {
	_, err := os.Stat(name)
	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, err
}

var LocalOS = LocalOSOpener{}
