package handler

// BotHandler defines the interface for operator bot handlers
type BotHandler interface {
	Start() error
	Stop() error
}
