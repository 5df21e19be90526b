package state

import (
	"path/filepath"
	"sync"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"

	"github.com/ahmadadeltub/green-smart-pedal/helpers"
	"github.com/ahmadadeltub/green-smart-pedal/log2"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Hardware struct {
		PinChip string `hcl:"pin_chip"`
		Pedal   struct {
			Pin        string `hcl:"pin"`
			DebounceMs int    `hcl:"debounce_ms"`
		} `hcl:"pedal"`
		Redeem struct {
			Pin        string `hcl:"pin"`
			DebounceMs int    `hcl:"debounce_ms"`
		} `hcl:"redeem"`
		Leds struct {
			Enable    bool   `hcl:"enable"`
			PedalPin  string `hcl:"pedal_pin"`
			RedeemPin string `hcl:"redeem_pin"`
			ErrorPin  string `hcl:"error_pin"`
		} `hcl:"leds"`
		Rfid struct {
			Enable bool   `hcl:"enable"`
			Device string `hcl:"device"`
		} `hcl:"rfid"`
		Display struct {
			Framebuffer string `hcl:"framebuffer"`
		} `hcl:"display"`
	}

	Ledger struct {
		Path string `hcl:"path"`
	}

	Persist struct {
		Root string `hcl:"root"`
	}

	UI struct {
		MsgIntro       string `hcl:"msg_intro"`
		MsgCardLoaded  string `hcl:"msg_card_loaded"`
		MsgStorageFail string `hcl:"msg_storage_fail"`
		MsgCodeFail    string `hcl:"msg_code_fail"`
		CodeTemplate   string `hcl:"code_template"`
		RedeemSec      int    `hcl:"redeem_sec"`

		// Kiosks without a card reader run every session against this
		// fixed card id, skipping the scan prompt.
		AnonymousCard string `hcl:"anonymous_card"`
	}

	_copy_guard sync.Mutex //nolint:unused
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		log.Fatalf("config duplicate source=%s", source.Name)
	} else {
		log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	}
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
			return
		}
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
