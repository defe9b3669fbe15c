package app

import (
	"github.com/rustyeddy/ftjournal/journal"
	"github.com/rustyeddy/ftjournal/store"
)

// DefaultListLimit is the page size when a list request names none.
const DefaultListLimit = 200

// StatusResult reports the database state and where things live.
type StatusResult struct {
	DB         store.Status `json:"db"`
	ConfigPath string       `json:"config_path"`
	DBPath     string       `json:"db_path,omitempty"`
	Cipher     bool         `json:"cipher_supported"`
}

// InitRequest creates a new journal database.
type InitRequest struct {
	Encrypted  bool   `json:"encrypted"`
	Passphrase string `json:"passphrase,omitempty"`
}

// UnlockRequest opens the configured database.
type UnlockRequest struct {
	Passphrase string `json:"passphrase,omitempty"`
}

// SettingsUpdateRequest changes user settings.
type SettingsUpdateRequest struct {
	Timezone string `json:"timezone"`
}

// RuleUpsertRequest creates or edits a checklist rule.
type RuleUpsertRequest struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	SortOrder int64  `json:"sort_order"`
}

// TradesListRequest pages through trades. A zero Limit means DefaultListLimit.
type TradesListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// TradeUpdateRequest replaces a trade's fields.
type TradeUpdateRequest struct {
	ID    string             `json:"id"`
	Input journal.TradeInput `json:"input"`
}

// MonthSummaryRequest names a calendar month in the settings timezone.
type MonthSummaryRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// DayRequest names a local date, YYYY-MM-DD.
type DayRequest struct {
	Date string `json:"date"`
}

// DailyEntrySaveRequest writes the note for a local date.
type DailyEntrySaveRequest struct {
	Date string `json:"date"`
	Text string `json:"text"`
}

// LinkRequest attaches a trade to a date's note.
type LinkRequest struct {
	Date    string `json:"date"`
	TradeID string `json:"trade_id"`
}

// BackupExportRequest copies the database out. An empty Path writes a
// timestamped file under the backups directory. Remote also pushes the
// file to the configured S3 mirror.
type BackupExportRequest struct {
	Path   string `json:"path,omitempty"`
	Remote bool   `json:"remote,omitempty"`
}

// BackupExportResult says where the backup went.
type BackupExportResult struct {
	Path string `json:"path"`
	Key  string `json:"key,omitempty"`
}

// BackupImportRequest restores from a local Path, or from a mirrored
// object Key that is first downloaded under the backups directory.
type BackupImportRequest struct {
	Path string `json:"path,omitempty"`
	Key  string `json:"key,omitempty"`
}

// CSVImportRequest imports a CSV file. An empty Timezone uses the
// settings timezone.
type CSVImportRequest struct {
	Path     string `json:"path"`
	Timezone string `json:"timezone,omitempty"`
}
