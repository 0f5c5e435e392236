package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GenerationMetrics captures one pipeline run for structured logging.
//
// Example:
//
//	logger.Info("generation complete", zap.Object("generation", metrics))
type GenerationMetrics struct {
	RequestID string
	Variant   string
	Backend   string

	Width  int
	Height int
	Steps  int
	Seed   int64
	Scales []float64

	Bucket    string
	EdgeRatio float64

	DecodeDuration       time.Duration
	ConditioningDuration time.Duration
	InferenceDuration    time.Duration
	EncodeDuration       time.Duration
	TotalDuration        time.Duration

	Success   bool
	ErrorKind string
	Error     string
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (m GenerationMetrics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if m.RequestID != "" {
		enc.AddString("request_id", m.RequestID)
	}
	enc.AddString("variant", m.Variant)
	if m.Backend != "" {
		enc.AddString("backend", m.Backend)
	}
	enc.AddInt("width", m.Width)
	enc.AddInt("height", m.Height)
	enc.AddInt("steps", m.Steps)
	enc.AddInt64("seed", m.Seed)
	if len(m.Scales) > 0 {
		if err := enc.AddArray("scales", floats(m.Scales)); err != nil {
			return err
		}
	}
	if m.Bucket != "" {
		enc.AddString("bucket", m.Bucket)
		enc.AddFloat64("edge_ratio", m.EdgeRatio)
	}
	enc.AddDuration("decode", m.DecodeDuration)
	enc.AddDuration("conditioning", m.ConditioningDuration)
	enc.AddDuration("inference", m.InferenceDuration)
	enc.AddDuration("encode", m.EncodeDuration)
	enc.AddDuration("total", m.TotalDuration)
	enc.AddBool("success", m.Success)
	if m.ErrorKind != "" {
		enc.AddString("error_kind", m.ErrorKind)
	}
	if m.Error != "" {
		enc.AddString("error", m.Error)
	}
	return nil
}

// Field wraps the metrics under the "generation" key.
func (m GenerationMetrics) Field() zap.Field {
	return zap.Object("generation", m)
}

type floats []float64

func (f floats) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, v := range f {
		enc.AppendFloat64(v)
	}
	return nil
}
