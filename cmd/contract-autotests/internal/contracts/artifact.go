package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/stellar/go/support/errors"
)

const defaultArtifactCacheSize = 64

// Artifact is a compiled contract.
type Artifact struct {
	Name string
	ABI  abi.ABI
	Bin  []byte
}

// Loader reads compiled contracts out of a directory. A contract Name is
// looked up as <Name>.json first (hardhat, foundry or solc --combined-json
// output), then as the <Name>.abi and <Name>.bin pair.
type Loader struct {
	dir   string
	cache *lru.Cache
}

func NewLoader(dir string, cacheSize int) (*Loader, error) {
	if cacheSize <= 0 {
		cacheSize = defaultArtifactCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Loader{dir: dir, cache: cache}, nil
}

func (l *Loader) Dir() string {
	return l.dir
}

func (l *Loader) Load(name string) (*Artifact, error) {
	if cached, ok := l.cache.Get(name); ok {
		return cached.(*Artifact), nil
	}
	artifact, err := l.load(name)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load contract %s from %s", name, l.dir)
	}
	l.cache.Add(name, artifact)
	return artifact, nil
}

func (l *Loader) load(name string) (*Artifact, error) {
	if data, err := os.ReadFile(filepath.Join(l.dir, name+".json")); err == nil {
		return ParseArtifactJSON(name, data)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	abiJSON, err := os.ReadFile(filepath.Join(l.dir, name+".abi"))
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, errors.Wrap(err, "invalid abi")
	}
	artifact := &Artifact{Name: name, ABI: parsed}
	bin, err := os.ReadFile(filepath.Join(l.dir, name+".bin"))
	switch {
	case err == nil:
		artifact.Bin = decodeBin(string(bin))
	case os.IsNotExist(err):
		// abi only, good enough for loading deployed contracts
	default:
		return nil, err
	}
	return artifact, nil
}

type jsonArtifact struct {
	ABI      json.RawMessage            `json:"abi"`
	Bytecode json.RawMessage            `json:"bytecode"`
	Bin      string                     `json:"bin"`
	Combined map[string]json.RawMessage `json:"contracts"`
}

// ParseArtifactJSON decodes a compiled contract in any of the supported json
// layouts.
func ParseArtifactJSON(name string, data []byte) (*Artifact, error) {
	var raw jsonArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "invalid artifact json")
	}

	if len(raw.ABI) == 0 && len(raw.Combined) > 0 {
		entry, err := combinedEntry(name, raw.Combined)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(entry, &raw); err != nil {
			return nil, errors.Wrap(err, "invalid combined json entry")
		}
	}
	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("artifact %s has no abi", name)
	}

	abiJSON := []byte(raw.ABI)
	// solc < 0.8.10 renders the abi as a string inside --combined-json
	var abiString string
	if json.Unmarshal(raw.ABI, &abiString) == nil {
		abiJSON = []byte(abiString)
	}
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, errors.Wrap(err, "invalid abi")
	}

	bin := raw.Bin
	if len(raw.Bytecode) > 0 {
		var hardhat string
		var foundry struct {
			Object string `json:"object"`
		}
		if json.Unmarshal(raw.Bytecode, &hardhat) == nil {
			bin = hardhat
		} else if json.Unmarshal(raw.Bytecode, &foundry) == nil {
			bin = foundry.Object
		} else {
			return nil, fmt.Errorf("artifact %s has an unsupported bytecode field", name)
		}
	}
	return &Artifact{Name: name, ABI: parsed, Bin: decodeBin(bin)}, nil
}

// combinedEntry picks the "<source>:<name>" entry of a --combined-json
// document, or its only entry.
func combinedEntry(name string, contracts map[string]json.RawMessage) (json.RawMessage, error) {
	for key, entry := range contracts {
		if key == name || strings.HasSuffix(key, ":"+name) {
			return entry, nil
		}
	}
	if len(contracts) == 1 {
		for _, entry := range contracts {
			return entry, nil
		}
	}
	return nil, fmt.Errorf("contract %s not found in combined json", name)
}

func decodeBin(bin string) []byte {
	return common.FromHex(strings.TrimSpace(bin))
}
