package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/config"
	"github.com/Triton-AI/go-kart-real-time-controller/pkg/gkc/packet"
)

// FileConfig is the on-disk shape of gkctl's YAML configuration file.
type FileConfig struct {
	Link       LinkConfig           `yaml:"link"`
	Redis      RedisConfig          `yaml:"redis"`
	Configurables packet.Configurables `yaml:"configurables"`
}

type LinkConfig struct {
	CommType   string `yaml:"comm_type"`
	SerialPort string `yaml:"serial_port"`
	BaudRate   int64  `yaml:"baud_rate"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// loadFileConfig reads and parses a YAML configuration file.
func loadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gkctl: read config %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("gkctl: parse config %s: %w", path, err)
	}
	if fc.Redis.Addr == "" {
		fc.Redis.Addr = "localhost:6379"
	}
	if fc.Link.CommType == "" {
		fc.Link.CommType = "serial"
	}
	if fc.Link.BaudRate == 0 {
		fc.Link.BaudRate = 115200
	}
	return &fc, nil
}

// sessionConfig turns the file's link section into the config.Map that
// session.New expects.
func (fc *FileConfig) sessionConfig() config.Map {
	return config.Map{
		"comm_type":   config.String(fc.Link.CommType),
		"serial_port": config.String(fc.Link.SerialPort),
		"baud_rate":   config.Int(fc.Link.BaudRate),
	}
}
