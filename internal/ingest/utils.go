package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
)

// Allowed extensions for discovery (lowercase, without '.').
var defaultExts = map[string]struct{}{
	"json": {},
	"txt":  {},
	"eml":  {},
}

func allowed(path string, exts map[string]struct{}) bool {
	if exts == nil {
		exts = defaultExts
	}
	_, ok := exts[ext(path)]
	return ok
}

func ext(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

func parseFile(path string, data []byte) ([]entity.Entry, error) {
	var entries []entity.Entry
	switch ext(path) {
	case "json":
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			var wrapped struct {
				Entries []entity.Entry `json:"entries"`
			}
			if err := json.Unmarshal(trimmed, &wrapped); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", common.ErrInvalidInput, filepath.Base(path), err)
			}
			entries = wrapped.Entries
		} else if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", common.ErrInvalidInput, filepath.Base(path), err)
		}
	case "eml":
		e, err := parseEmail(path, data)
		if err != nil {
			return nil, err
		}
		entries = []entity.Entry{e}
	default:
		entries = []entity.Entry{{EntryID: entryID(path), RawText: string(data)}}
	}

	out := entries[:0]
	for _, e := range entries {
		if strings.TrimSpace(e.RawText) != "" {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s has no order text", common.ErrInvalidInput, filepath.Base(path))
	}
	return out, nil
}

func parseEmail(path string, data []byte) (entity.Entry, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return entity.Entry{}, fmt.Errorf("%w: %s: %v", common.ErrInvalidInput, filepath.Base(path), err)
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return entity.Entry{}, fmt.Errorf("read body: %w", err)
	}
	e := entity.Entry{
		EntryID: entryID(path),
		RawText: string(body),
		Subject: msg.Header.Get("Subject"),
	}
	if subj, err := new(mime.WordDecoder).DecodeHeader(e.Subject); err == nil {
		e.Subject = subj
	}
	if from, err := msg.Header.AddressList("From"); err == nil && len(from) > 0 {
		e.From = from[0].Address
	} else {
		e.From = msg.Header.Get("From")
	}
	if id := strings.Trim(msg.Header.Get("Message-Id"), "<> "); id != "" {
		e.EntryID = id
	}
	return e, nil
}

func entryID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
