package sensorlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// The log file is a CBOR sequence (RFC 8742): one diskRecord per item,
// appended as records arrive and rewritten on compaction or clear.

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("sensorlog: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("sensorlog: CBOR decoder initialization failed: " + err.Error())
	}
}

// diskRecord is the compact on-disk form of a Record.
type diskRecord struct {
	ID         string    `cbor:"1,keyasint"`
	UnixMilli  int64     `cbor:"2,keyasint"`
	Mode       int       `cbor:"3,keyasint"`
	FlexBent   bool      `cbor:"4,keyasint"`
	FlexValues []float64 `cbor:"5,keyasint,omitempty"`
	IMU        *IMU      `cbor:"6,keyasint,omitempty"`
	IRState    string    `cbor:"7,keyasint,omitempty"`
	IRSensor   string    `cbor:"8,keyasint,omitempty"`
	Gesture    string    `cbor:"9,keyasint"`
}

func toDisk(r Record) diskRecord {
	d := diskRecord{
		ID:         r.ID,
		Mode:       int(r.Mode),
		FlexBent:   r.FlexBent,
		FlexValues: r.FlexValues,
		IMU:        r.IMU,
		IRState:    r.IRState,
		IRSensor:   r.IRSensor,
		Gesture:    r.Gesture,
	}
	if !r.Timestamp.IsZero() {
		d.UnixMilli = r.Timestamp.UnixMilli()
	}
	return d
}

func (d diskRecord) record() Record {
	r := Record{
		ID:         d.ID,
		Mode:       Mode(d.Mode),
		FlexBent:   d.FlexBent,
		FlexValues: d.FlexValues,
		IMU:        d.IMU,
		IRState:    d.IRState,
		IRSensor:   d.IRSensor,
		Gesture:    d.Gesture,
	}
	if d.UnixMilli > 0 {
		r.Timestamp = time.UnixMilli(d.UnixMilli)
	}
	return r
}

type fileLog struct {
	path string
	f    *os.File
	enc  *cbor.Encoder
}

// openFileLog opens (creating if needed) the log at path and decodes its
// records. dirty reports a truncated or corrupt tail that must be rewritten
// before appending.
func openFileLog(path string) (l *fileLog, recs []Record, dirty bool, err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, false, fmt.Errorf("create log dir: %w", err)
		}
	}

	if rf, err := os.Open(path); err == nil {
		dec := decMode.NewDecoder(rf)
		for {
			var d diskRecord
			if err := dec.Decode(&d); err != nil {
				if !errors.Is(err, io.EOF) {
					dirty = true
				}
				break
			}
			recs = append(recs, d.record())
		}
		_ = rf.Close()
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, nil, false, fmt.Errorf("open log: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, false, fmt.Errorf("open log: %w", err)
	}
	return &fileLog{path: path, f: f, enc: encMode.NewEncoder(f)}, recs, dirty, nil
}

func (l *fileLog) append(r Record) error {
	return l.enc.Encode(toDisk(r))
}

// rewrite atomically replaces the file with recs.
func (l *fileLog) rewrite(recs []Record) error {
	tmp := l.path + ".tmp"
	tf, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc := encMode.NewEncoder(tf)
	for _, r := range recs {
		if err := enc.Encode(toDisk(r)); err != nil {
			_ = tf.Close()
			_ = os.Remove(tmp)
			return err
		}
	}
	if err := tf.Sync(); err != nil {
		_ = tf.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := tf.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	_ = l.f.Close()
	renameErr := os.Rename(tmp, l.path)
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	l.f = f
	l.enc = encMode.NewEncoder(f)
	return renameErr
}

func (l *fileLog) close() error {
	return l.f.Close()
}
