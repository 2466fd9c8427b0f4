package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/memsim/cache"
	"gopkg.in/yaml.v3"
)

// LevelFile is one cache level as written in a cache config file
type LevelFile struct {
	Name          string `yaml:"name"`
	Size          int    `yaml:"size"`
	BlockSize     int    `yaml:"block_size"`
	Associativity int    `yaml:"associativity"`
	Policy        string `yaml:"policy"`
	Latency       int    `yaml:"latency"`
}

// CacheFile holds the default answers offered by the 'init cache' prompts
type CacheFile struct {
	// MemoryLatency overrides the hierarchy's main memory latency when the --memory-latency flag is unset
	MemoryLatency int         `yaml:"memory_latency,omitempty"`
	Levels        []LevelFile `yaml:"levels"`
}

// DefaultCacheFile returns a two-level hierarchy: a small LRU L1 and a larger FIFO L2
func DefaultCacheFile() CacheFile {
	return CacheFile{
		Levels: []LevelFile{
			{Name: "L1", Size: 256, BlockSize: 16, Associativity: 4, Policy: "lru", Latency: 1},
			{Name: "L2", Size: 1024, BlockSize: 32, Associativity: 8, Policy: "fifo", Latency: 10},
		},
	}
}

// ParseCacheFile decodes a cache config document. Every level is validated so that a bad file is
// reported at startup rather than at the first 'init cache'.
func ParseCacheFile(data []byte) (CacheFile, error) {
	var file CacheFile
	err := yaml.Unmarshal(data, &file)
	if err != nil {
		return CacheFile{}, errors.Wrap(err, "failed to parse cache config")
	}

	if len(file.Levels) == 0 {
		return CacheFile{}, errors.New("cache config must define at least one level")
	}

	for _, level := range file.Levels {
		config, err := level.LevelConfig()
		if err != nil {
			return CacheFile{}, err
		}

		err = config.Validate()
		if err != nil {
			return CacheFile{}, err
		}
	}

	return file, nil
}

// LoadCacheFile reads and parses the cache config at path
func LoadCacheFile(path string) (CacheFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CacheFile{}, errors.Wrapf(err, "failed to read cache config %s", path)
	}

	return ParseCacheFile(data)
}

// LevelConfig converts the file representation into a cache.LevelConfig
func (l LevelFile) LevelConfig() (cache.LevelConfig, error) {
	policy, err := cache.ParseReplacementPolicy(l.Policy)
	if err != nil {
		return cache.LevelConfig{}, errors.Wrapf(err, "level %s", l.Name)
	}

	return cache.LevelConfig{
		Name:          l.Name,
		Size:          l.Size,
		BlockSize:     l.BlockSize,
		Associativity: l.Associativity,
		Policy:        policy,
		Latency:       l.Latency,
	}, nil
}
