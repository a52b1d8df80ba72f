package types

type MessageType string

const (
	SchemaMessage MessageType = "SCHEMA"
	RecordMessage MessageType = "RECORD"
	StateMessage  MessageType = "STATE"
	LogMessage    MessageType = "LOG"

	ConnectionStatusMessage MessageType = "CONNECTION_STATUS"
	CatalogMessage          MessageType = "CATALOG"
	SpecMessage             MessageType = "SPEC"
)

type ConnectionStatus string

const (
	ConnectionSucceed ConnectionStatus = "SUCCEEDED"
	ConnectionFailed  ConnectionStatus = "FAILED"
)
