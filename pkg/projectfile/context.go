package projectfile

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/ticktrack/core/pkg/model"
)

// ErrContextCanceled is returned by the context-aware Save/Load variants
// when ctx is done before the operation completes.
var ErrContextCanceled = errors.New("projectfile: operation canceled")

// SaveWithContext writes song to w in chunks, checking ctx between each -
// a large Song file's write shouldn't block a cancellable UI save action
// past its deadline.
func (m *Manager) SaveWithContext(ctx context.Context, w io.Writer, song *model.Song) error {
	select {
	case <-ctx.Done():
		return ErrContextCanceled
	default:
	}

	data, err := m.SaveToJSON(song)
	if err != nil {
		return err
	}

	const chunkSize = 4096
	for i := 0; i < len(data); i += chunkSize {
		select {
		case <-ctx.Done():
			return ErrContextCanceled
		default:
		}
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err := w.Write(data[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// LoadWithContext reads and parses a Song file from r, checking ctx
// periodically while reading.
func (m *Manager) LoadWithContext(ctx context.Context, r io.Reader) (*model.Song, error) {
	select {
	case <-ctx.Done():
		return nil, ErrContextCanceled
	default:
	}

	data := make([]byte, 0, 4096)
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return nil, ErrContextCanceled
		default:
		}
		n, err := r.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	song := env.Song
	return &song, nil
}
