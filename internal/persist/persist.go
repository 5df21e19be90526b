// Session journal: the live (card, count) pair mirrored to crash-safe
// storage so a power cut mid-session does not lose pedal presses.
package persist

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/juju/errors"
	"github.com/temoto/extremofile"

	"github.com/ahmadadeltub/green-smart-pedal/log2"
)

type storage interface {
	Read() ([]byte, error)
	io.Writer
}

type Journal struct {
	sync.Mutex
	log     *log2.Log
	storage storage
}

// Init with root="" disables the journal; all operations become no-ops.
func (j *Journal) Init(root string, log *log2.Log) error {
	j.log = log
	if root == "" {
		j.log.Debugf("journal disabled")
		return nil
	}
	j.storage = extremofile.New(extremofile.Config{
		Dir:      filepath.Join(root, "session"),
		DirPerm:  0755,
		FilePerm: 0644,
	})
	return nil
}

func (j *Journal) Enabled() bool { return j.storage != nil }

func (j *Journal) Store(cardID string, count int) error {
	if j.storage == nil {
		return nil
	}
	j.Lock()
	defer j.Unlock()
	// extremofile replaces whole content on each Write call, keep it single
	b := []byte(fmt.Sprintf("%s\n%d\n", cardID, count))
	_, err := j.storage.Write(b)
	return errors.Annotate(err, "journal store")
}

// Load returns ok=false when the journal is empty or disabled.
func (j *Journal) Load() (cardID string, count int, ok bool, err error) {
	if j.storage == nil {
		return "", 0, false, nil
	}
	j.Lock()
	defer j.Unlock()
	b, err := j.storage.Read()
	if b == nil {
		if extremofile.IsCritical(err) {
			return "", 0, false, errors.Annotate(err, "journal load")
		}
		return "", 0, false, nil
	}
	if err != nil {
		j.log.Errorf("journal ignore non-critical read err=%v", err)
	}
	parts := bytes.SplitN(b, []byte{'\n'}, 3)
	if len(parts) < 2 || len(parts[0]) == 0 {
		return "", 0, false, nil
	}
	count, err = strconv.Atoi(string(bytes.TrimSpace(parts[1])))
	if err != nil {
		return "", 0, false, errors.Annotate(err, "journal malformed")
	}
	return string(parts[0]), count, true, nil
}

func (j *Journal) Clear() error {
	if j.storage == nil {
		return nil
	}
	j.Lock()
	defer j.Unlock()
	_, err := j.storage.Write([]byte("\n"))
	return errors.Annotate(err, "journal clear")
}
