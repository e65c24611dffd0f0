package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/chiplogic/internal/filex"
)

// FileSink writes the seeded credentials to a file readable only by the
// owner, replacing any previous content.
type FileSink struct {
	Path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

func (f *FileSink) PublishCredentials(_ context.Context, userName, password string) error {
	content := fmt.Sprintf("Default User: %s\nPassword: %s\n", userName, password)
	return filex.WritePrivateFile(f.Path, []byte(content))
}
