package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldUserID is the structured log field key for the chat user identifier.
	FieldUserID = "user_id"
	// FieldSessionID is the structured log field key for the chat session.
	FieldSessionID = "session_id"
	// FieldIntent is the structured log field key for the classified intent.
	FieldIntent = "intent"
	// FieldProvider is the structured log field key for an external provider name.
	FieldProvider = "provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// A nil logger is replaced with a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// ChatFields returns the fields identifying one conversation turn.
func ChatFields(userID, sessionID, intent string) []zap.Field {
	return StringFields(
		StringField{Key: FieldUserID, Value: userID},
		StringField{Key: FieldSessionID, Value: sessionID},
		StringField{Key: FieldIntent, Value: intent},
	)
}

// WithChatFields attaches the conversation fields to the provided logger.
func WithChatFields(logger *zap.Logger, userID, sessionID, intent string) *zap.Logger {
	return WithFields(logger, ChatFields(userID, sessionID, intent)...)
}

// ProviderFields describes an external provider and, for AI providers, the model.
func ProviderFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}
