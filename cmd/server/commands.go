package main

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/mockgov-settings/internal/registry"
	"github.com/eugenenazirov/mockgov-settings/internal/reload"
)

// runValidate builds the files exactly as serve would and reports a summary.
func runValidate(w io.Writer, provider string, files []string) error {
	snap, err := reload.Loader{Overrides: files, Provider: provider}.Build()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "ok: %d entries from %d sources, openid_connect enabled=%t\n",
		snap.Registry.Len(), len(files), snap.Settings.OpenIDConnect.Enabled)
	return err
}

// runGet overlays the files without binding and prints the value at path:
// strings raw, booleans as true/false, mappings as YAML.
func runGet(w io.Writer, path string, files []string) error {
	key, err := registry.ParseKeyPath(path)
	if err != nil {
		return err
	}

	layers := make([]*registry.Registry, 0, len(files))
	for _, file := range files {
		reg, err := registry.LoadFile(file)
		if err != nil {
			return err
		}
		layers = append(layers, reg)
	}

	value, err := registry.OverlayAll(layers...).Get(key)
	if err != nil {
		return err
	}

	switch value.Kind() {
	case registry.KindString:
		s, _ := value.AsString()
		_, err = fmt.Fprintln(w, s)
	case registry.KindBool:
		b, _ := value.AsBool()
		_, err = fmt.Fprintln(w, strconv.FormatBool(b))
	default:
		var out []byte
		out, err = yaml.Marshal(value.Interface())
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		_, err = w.Write(out)
	}
	return err
}
