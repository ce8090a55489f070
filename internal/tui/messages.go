package tui

import "ccdash/config/models"

// ConfigsLoadedMsg is sent when the catalog has been read
type ConfigsLoadedMsg struct {
	Summaries []models.Summary
	Err       error
}

// SwitchedMsg is sent when a switch completes
type SwitchedMsg struct {
	Receipt *models.SwitchReceipt
	Err     error
}

// BackupMsg is sent when a backup completes
type BackupMsg struct {
	Name string
	Err  error
}

// CreatedMsg is sent when a config is added
type CreatedMsg struct {
	Summary *models.Summary
	Err     error
}

// DeletedMsg is sent when a config is deleted
type DeletedMsg struct {
	ID  string
	Err error
}

// CopiedMsg is sent after writing to the clipboard
type CopiedMsg struct {
	Text string
	Err  error
}

// DirChangedMsg is sent when the directory watcher reports a change
type DirChangedMsg struct {
	Version int64
}
