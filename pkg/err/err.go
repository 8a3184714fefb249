package errprocess

import (
	"errors"

	"web_chat_service/pkg/logger"
)

// Set logs the message and returns it as an error
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}
