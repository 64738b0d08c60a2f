package lsp

import (
	"encoding/json"
	"time"
)

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	if len(msg.Params) == 0 {
		return nil
	}
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	s.applySettings(params.Settings)
	return nil
}

// applySettings accepts both {"gamscheck": {...}} and the bare section.
func (s *Server) applySettings(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var settings lspSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return
	}
	section := settings.Gamscheck
	if section == (gamscheckSettings{}) {
		if err := json.Unmarshal(raw, &section); err != nil {
			return
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if section.DebounceMs != nil && *section.DebounceMs >= 0 {
		s.debounce = time.Duration(*section.DebounceMs) * time.Millisecond
	}
	if section.MaxDiagnostics != nil && *section.MaxDiagnostics > 0 {
		s.maxDiagnostics = *section.MaxDiagnostics
	}
	if section.Trace != nil {
		s.traceLSP = *section.Trace
	}
}
