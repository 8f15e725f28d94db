package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/jaki95/ambient-mixer/internal/domain"
)

const (
	mixesDir = "mixes"
	mixExt   = ".json"
)

// MixRepository stores named mixes as JSON documents in a Storage.
type MixRepository struct {
	store Storage
}

func NewMixRepository(store Storage) *MixRepository {
	return &MixRepository{store: store}
}

// Save writes dto under name, replacing any mix already saved there.
func (r *MixRepository) Save(name string, dto domain.MixDTO) error {
	key, err := mixKey(name)
	if err != nil {
		return err
	}

	w, err := r.store.GetWriter(key)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", key, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dto); err != nil {
		w.Close()
		return fmt.Errorf("failed to encode mix: %w", err)
	}
	return w.Close()
}

func (r *MixRepository) Load(name string) (domain.MixDTO, error) {
	key, err := mixKey(name)
	if err != nil {
		return domain.MixDTO{}, err
	}

	rc, err := r.store.GetReader(key)
	if errors.Is(err, ErrNotFound) {
		return domain.MixDTO{}, fmt.Errorf("%w: %s", ErrMixNotFound, name)
	}
	if err != nil {
		return domain.MixDTO{}, fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer rc.Close()

	var dto domain.MixDTO
	if err := json.NewDecoder(rc).Decode(&dto); err != nil {
		return domain.MixDTO{}, fmt.Errorf("%w: %s: %v", ErrCorruptedMix, name, err)
	}
	return dto, nil
}

// List returns the names of all saved mixes, sorted.
func (r *MixRepository) List() ([]string, error) {
	keys, err := r.store.ListFiles(mixesDir, "")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))
	for _, k := range keys {
		base := path.Base(k)
		if !strings.HasSuffix(base, mixExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(base, mixExt))
	}
	sort.Strings(names)
	return names, nil
}

func (r *MixRepository) Delete(name string) error {
	key, err := mixKey(name)
	if err != nil {
		return err
	}
	if err := r.store.Delete(key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrMixNotFound, name)
		}
		return err
	}
	return nil
}

func mixKey(name string) (string, error) {
	clean := SanitizeName(name)
	if clean == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return mixesDir + "/" + clean + mixExt, nil
}

// SanitizeName replaces characters that are unsafe in file and object names
// with underscores and trims leading and trailing spaces and dots.
func SanitizeName(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", "\n", "\r", "\t"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	return strings.Trim(result, " .")
}
