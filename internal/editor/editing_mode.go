package editor

import "slices"

// BlockEditingMode resolves how clientID ("" for the document root) may be
// edited.
//
// The editor mode picks the resolver first. Zoom-out and navigation modes
// ignore per-block overrides entirely: only the section root and its direct
// children (the sections) stay interactive.
func (s *Store) BlockEditingMode(clientID string) EditingMode {
	switch s.editorMode {
	case EditorModeZoomOut:
		return s.zoomOutEditingMode(clientID)
	case EditorModeNavigation:
		return s.navigationEditingMode(clientID)
	default:
		return s.normalEditingMode(clientID)
	}
}

func (s *Store) normalEditingMode(clientID string) EditingMode {
	if mode, ok := s.editingModes[clientID]; ok {
		return mode
	}
	if clientID == "" {
		return EditingModeDefault
	}

	root, ok := s.blocks.parents[clientID]
	if !ok {
		return EditingModeDefault
	}
	if s.TemplateLock(root) == TemplateLockContentOnly {
		if s.registry.HasContentRoleAttribute(s.BlockName(clientID)) {
			return EditingModeContentOnly
		}
		return EditingModeDisabled
	}

	// contentOnly does not cascade past the block it was set on.
	parentMode := s.normalEditingMode(root)
	if parentMode == EditingModeContentOnly {
		return EditingModeDefault
	}
	return parentMode
}

func (s *Store) zoomOutEditingMode(clientID string) EditingMode {
	sectionRoot := s.settings.SectionRootClientID
	if clientID == "" {
		if sectionRoot != "" {
			return EditingModeDisabled
		}
		return EditingModeContentOnly
	}
	if clientID == sectionRoot || slices.Contains(s.blocks.order[sectionRoot], clientID) {
		return EditingModeContentOnly
	}
	return EditingModeDisabled
}

func (s *Store) navigationEditingMode(clientID string) EditingMode {
	sectionRoot := s.settings.SectionRootClientID
	if clientID == sectionRoot {
		return EditingModeDefault
	}
	if slices.Contains(s.blocks.order[sectionRoot], clientID) {
		return EditingModeContentOnly
	}
	return EditingModeDisabled
}

// SetBlockEditingMode overrides the editing mode of clientID ("" for the
// root). Invalid modes are ignored.
func (s *Store) SetBlockEditingMode(clientID string, mode EditingMode) bool {
	if !mode.Valid() {
		s.logger.Debug("rejected editing mode", "client_id", clientID, "mode", string(mode))
		return false
	}
	s.dispatch(Action{Type: ActionSetBlockEditingMode, ClientID: clientID, EditingMode: mode})
	return true
}

// UnsetBlockEditingMode removes the override on clientID.
func (s *Store) UnsetBlockEditingMode(clientID string) {
	s.dispatch(Action{Type: ActionUnsetBlockEditingMode, ClientID: clientID})
}

// SetEditorMode switches the editor mode.
func (s *Store) SetEditorMode(mode EditorMode) bool {
	switch mode {
	case EditorModeEdit, EditorModeZoomOut, EditorModeNavigation:
	default:
		return false
	}
	s.dispatch(Action{Type: ActionSetEditorMode, EditorMode: mode})
	return true
}
