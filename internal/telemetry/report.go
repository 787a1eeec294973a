package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Unknown fills every string the plugin left out.
const Unknown = "unknown"

// Report is the typed telemetry of one WordPress site.
type Report struct {
	System        System      `json:"system"`
	Plugins       []Plugin    `json:"plugins"`
	RecentUpdates []UpdateLog `json:"recent_updates"`
	Backup        Backup      `json:"backup"`
}

type System struct {
	SiteName   string `json:"site_name"`
	URL        string `json:"url"`
	WPVersion  string `json:"wp_version"`
	PHPVersion string `json:"php_version"`
	IP         string `json:"ip"`
	Theme      Theme  `json:"theme"`
}

type Theme struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Plugin struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Author  string `json:"author"`
}

type UpdateLog struct {
	Plugin  string `json:"plugin"`
	Version string `json:"version"`
	Date    string `json:"date"`
}

type Backup struct {
	Active  bool         `json:"active"`
	History []BackupItem `json:"history"`
}

type BackupItem struct {
	Date string `json:"date"`
	Size string `json:"size"`
	Kind string `json:"kind"`
	Link string `json:"link,omitempty"`
}

// wire mirrors the plugin payload. Every field is optional.
type wire struct {
	Sistema *struct {
		NomeSite  *string `json:"nome_site"`
		URL       *string `json:"url"`
		WPVersion *string `json:"wp_version"`
		PHP       *string `json:"php"`
		IP        *string `json:"ip"`
		Tema      *struct {
			Nome   *string `json:"nome"`
			Versao *string `json:"versao"`
		} `json:"tema"`
	} `json:"sistema"`
	Plugins []struct {
		Nome   *string `json:"nome"`
		Versao *string `json:"versao"`
		Autor  *string `json:"autor"`
	} `json:"plugins_instalados"`
	Logs []struct {
		Plugin *string `json:"plugin"`
		Versao *string `json:"versao"`
		Data   *string `json:"data"`
	} `json:"logs_recentes"`
	Backup *struct {
		Ativo     *bool `json:"ativo"`
		Historico []struct {
			Data    *string `json:"data"`
			Tamanho *string `json:"tamanho"`
			Tipo    *string `json:"tipo"`
			Link    *string `json:"link"`
		} `json:"historico"`
	} `json:"backup"`
}

// Decode parses a plugin payload and applies defaults: missing strings
// become "unknown", missing lists become empty, missing backup is inactive.
func Decode(data []byte) (*Report, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode telemetry: %w", err)
	}

	r := &Report{
		System: System{
			SiteName:   Unknown,
			URL:        Unknown,
			WPVersion:  Unknown,
			PHPVersion: Unknown,
			IP:         Unknown,
			Theme:      Theme{Name: Unknown, Version: Unknown},
		},
		Plugins:       make([]Plugin, 0, len(w.Plugins)),
		RecentUpdates: make([]UpdateLog, 0, len(w.Logs)),
		Backup:        Backup{History: []BackupItem{}},
	}

	if s := w.Sistema; s != nil {
		r.System.SiteName = str(s.NomeSite)
		r.System.URL = str(s.URL)
		r.System.WPVersion = str(s.WPVersion)
		r.System.PHPVersion = str(s.PHP)
		r.System.IP = str(s.IP)
		if s.Tema != nil {
			r.System.Theme = Theme{Name: str(s.Tema.Nome), Version: str(s.Tema.Versao)}
		}
	}

	for _, p := range w.Plugins {
		r.Plugins = append(r.Plugins, Plugin{Name: str(p.Nome), Version: str(p.Versao), Author: str(p.Autor)})
	}
	for _, l := range w.Logs {
		r.RecentUpdates = append(r.RecentUpdates, UpdateLog{Plugin: str(l.Plugin), Version: str(l.Versao), Date: str(l.Data)})
	}

	if b := w.Backup; b != nil {
		r.Backup.Active = b.Ativo != nil && *b.Ativo
		for _, h := range b.Historico {
			item := BackupItem{Date: str(h.Data), Size: str(h.Tamanho), Kind: str(h.Tipo)}
			if h.Link != nil {
				item.Link = *h.Link
			}
			r.Backup.History = append(r.Backup.History, item)
		}
	}

	return r, nil
}

func str(p *string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return Unknown
	}
	return *p
}
