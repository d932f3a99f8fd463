package domain

type HistoryRepository interface {
	RecordEvent(ev Event) error
	RecordCommand(command, response string, cmdErr error) error
	ListHistory(limit int) ([]HistoryEntry, error)
}
