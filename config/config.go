package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/shared/transfer"
)

const envPrefix = "CLASSICFT_"

// File is the YAML layout of a configuration file. Unset keys keep their
// defaults.
type File struct {
	Address   string `yaml:"address"`
	Transport string `yaml:"transport"`
	Encoding  string `yaml:"encoding"`
	Framing   string `yaml:"framing"`
	Digest    string `yaml:"digest"`

	ChunkSize    *int   `yaml:"chunk_size"`
	AckTimeout   string `yaml:"ack_timeout"`
	IdleTimeout  string `yaml:"idle_timeout"`
	MaxRetries   *int   `yaml:"max_retries"`
	StrictAck    *bool  `yaml:"strict_ack"`
	NegativeAcks *bool  `yaml:"negative_acks"`
	MaxFileSize  *int64 `yaml:"max_file_size"`
	MaxFrames    *int64 `yaml:"max_frames"`

	UploadDirectory string  `yaml:"upload_directory"`
	OutputDirectory string  `yaml:"output_directory"`
	OutputPrefix    *string `yaml:"output_prefix"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load returns defaults overlaid with the file at path (if any) and then
// with CLASSICFT_* environment variables. The result is validated.
func Load(path string) (transfer.Config, error) {
	config := transfer.NewConfig()

	if path != "" {
		if err := loadFromFile(&config, path); err != nil {
			return config, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := loadFromEnvironment(&config); err != nil {
		return config, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := Validate(config); err != nil {
		return config, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

func loadFromFile(config *transfer.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return f.apply(config)
}

func (f *File) apply(config *transfer.Config) error {
	setString(&config.Address, f.Address)
	setString(&config.Transport, f.Transport)
	setString(&config.Encoding, f.Encoding)
	setString(&config.Framing, f.Framing)
	setString(&config.Digest, f.Digest)
	setString(&config.UploadDirectory, f.UploadDirectory)
	setString(&config.OutputDirectory, f.OutputDirectory)
	setString(&config.Log.Level, f.Log.Level)
	setString(&config.Log.Format, f.Log.Format)

	if f.ChunkSize != nil {
		config.ChunkSize = *f.ChunkSize
	}
	if f.MaxRetries != nil {
		config.MaxRetries = *f.MaxRetries
	}
	if f.StrictAck != nil {
		config.StrictAck = *f.StrictAck
	}
	if f.NegativeAcks != nil {
		config.NegativeAcks = *f.NegativeAcks
	}
	if f.MaxFileSize != nil {
		config.MaxFileSize = *f.MaxFileSize
	}
	if f.MaxFrames != nil {
		config.MaxFrames = *f.MaxFrames
	}
	if f.OutputPrefix != nil {
		config.OutputPrefix = *f.OutputPrefix
	}
	if f.AckTimeout != "" {
		d, err := time.ParseDuration(f.AckTimeout)
		if err != nil {
			return fmt.Errorf("invalid ack_timeout: %w", err)
		}
		config.AckTimeout = d
	}
	if f.IdleTimeout != "" {
		d, err := time.ParseDuration(f.IdleTimeout)
		if err != nil {
			return fmt.Errorf("invalid idle_timeout: %w", err)
		}
		config.IdleTimeout = d
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func loadFromEnvironment(config *transfer.Config) error {
	strs := map[string]*string{
		"ADDRESS":          &config.Address,
		"TRANSPORT":        &config.Transport,
		"ENCODING":         &config.Encoding,
		"FRAMING":          &config.Framing,
		"DIGEST":           &config.Digest,
		"UPLOAD_DIRECTORY": &config.UploadDirectory,
		"OUTPUT_DIRECTORY": &config.OutputDirectory,
		"LOG_LEVEL":        &config.Log.Level,
		"LOG_FORMAT":       &config.Log.Format,
	}
	for key, dst := range strs {
		setString(dst, os.Getenv(envPrefix+key))
	}
	if v, ok := os.LookupEnv(envPrefix + "OUTPUT_PREFIX"); ok {
		config.OutputPrefix = v
	}

	ints := map[string]*int{
		"CHUNK_SIZE":  &config.ChunkSize,
		"MAX_RETRIES": &config.MaxRetries,
	}
	for key, dst := range ints {
		if v := os.Getenv(envPrefix + key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = n
		}
	}

	int64s := map[string]*int64{
		"MAX_FILE_SIZE": &config.MaxFileSize,
		"MAX_FRAMES":    &config.MaxFrames,
	}
	for key, dst := range int64s {
		if v := os.Getenv(envPrefix + key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"STRICT_ACK":    &config.StrictAck,
		"NEGATIVE_ACKS": &config.NegativeAcks,
	}
	for key, dst := range bools {
		if v := os.Getenv(envPrefix + key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = b
		}
	}

	durations := map[string]*time.Duration{
		"ACK_TIMEOUT":  &config.AckTimeout,
		"IDLE_TIMEOUT": &config.IdleTimeout,
	}
	for key, dst := range durations {
		if v := os.Getenv(envPrefix + key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = d
		}
	}
	return nil
}

// Validate rejects configurations the protocol cannot run with.
func Validate(c transfer.Config) error {
	if c.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	switch c.Transport {
	case "tcp", "quic":
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	switch c.Framing {
	case "length", "raw":
	default:
		return fmt.Errorf("unknown framing %q", c.Framing)
	}
	switch c.Encoding {
	case "text":
	case "gob", "bson", "proto":
		if c.Framing == "raw" {
			return fmt.Errorf("encoding %q needs length framing", c.Encoding)
		}
	default:
		return fmt.Errorf("unknown encoding %q", c.Encoding)
	}
	switch c.Digest {
	case "sha256", "blake3":
	default:
		return fmt.Errorf("unknown digest %q", c.Digest)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if c.AckTimeout <= 0 {
		return fmt.Errorf("ack timeout must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive")
	}
	if c.MaxFrames <= 0 {
		return fmt.Errorf("max frames must be positive")
	}
	//the largest accepted file must fit in the frames a client will store
	if frames := (c.MaxFileSize + int64(c.ChunkSize) - 1) / int64(c.ChunkSize); frames > c.MaxFrames {
		return fmt.Errorf("max file size %d needs %d frames of %d bytes, max frames is %d", c.MaxFileSize, frames, c.ChunkSize, c.MaxFrames)
	}
	if c.UploadDirectory == "" || c.OutputDirectory == "" {
		return fmt.Errorf("directories cannot be empty")
	}
	return nil
}
