package transfer

import "time"

type ProgressType int

const (
	HANDSHAKING ProgressType = iota
	UPLOADING
	RETURNING
	VERIFYING
	DONE
	ERROR
)

type Progress struct {
	Message    string
	Percentage float64
	Type       ProgressType
}

const (
	defaultAddress         = "127.0.0.1:12345"
	defaultChunkSize       = 1024 //in bytes
	defaultAckTimeout      = 2 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultMaxRetries      = 1
	defaultMaxFileSize     = 1 << 30
	defaultMaxFrames       = 1 << 22
	defaultOutputPrefix    = "received_"
	defaultMetadataSize    = 1024 //read size of the header in raw framing
	defaultHeaderAllowance = 10   //room for "seq|" on top of a chunk in raw framing
	defaultAckSize         = 10   //read size of an acknowledgment in raw framing
)

type LogConfig struct {
	Level  string
	Format string
}

type Config struct {
	Address   string
	Transport string //tcp or quic
	Encoding  string //text, gob, bson or proto
	Framing   string //length or raw
	Digest    string //sha256 or blake3

	ChunkSize    int
	AckTimeout   time.Duration
	IdleTimeout  time.Duration
	MaxRetries   int
	StrictAck    bool
	NegativeAcks bool

	MaxFileSize int64
	MaxFrames   int64

	UploadDirectory string
	OutputDirectory string
	OutputPrefix    string

	Log LogConfig
}

func NewConfig() Config {
	return Config{
		Address:         defaultAddress,
		Transport:       "tcp",
		Encoding:        "text",
		Framing:         "length",
		Digest:          "sha256",
		ChunkSize:       defaultChunkSize,
		AckTimeout:      defaultAckTimeout,
		IdleTimeout:     defaultIdleTimeout,
		MaxRetries:      defaultMaxRetries,
		StrictAck:       true,
		NegativeAcks:    true,
		MaxFileSize:     defaultMaxFileSize,
		MaxFrames:       defaultMaxFrames,
		UploadDirectory: ".",
		OutputDirectory: ".",
		OutputPrefix:    defaultOutputPrefix,
		Log:             LogConfig{Level: "info", Format: "text"},
	}
}

// MetadataReadSize bounds a metadata message.
func (c Config) MetadataReadSize() int {
	if c.Framing == "raw" {
		return defaultMetadataSize
	}
	return 4 * defaultMetadataSize
}

// FrameReadSize bounds one frame: a full chunk plus its sequence header.
func (c Config) FrameReadSize() int {
	if c.Framing == "raw" {
		return c.ChunkSize + defaultHeaderAllowance
	}
	//structured encodings add field tags and type descriptors
	return c.ChunkSize + 512
}

// AckReadSize bounds one acknowledgment.
func (c Config) AckReadSize() int {
	if c.Framing == "raw" {
		return defaultAckSize
	}
	return 512
}

// SendsNaks reports whether discarded frames are answered with a NAK. Legacy
// peers on raw framing do not know the token, so they never get one.
func (c Config) SendsNaks() bool {
	return c.NegativeAcks && c.Framing != "raw"
}

// Transfer is the state of one file exchange as seen by one side.
type Transfer interface {
	UpdateProgress(Progress)
	Config() Config
	Filename() string
	LocalDirectory() string
	FullPath() string
}
