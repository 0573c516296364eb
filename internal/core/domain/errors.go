package domain

import "errors"

var (
	ErrPropertyNotFound    = errors.New("property not found")
	ErrPositionNotFound    = errors.New("position not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrRecordExists        = errors.New("record already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrMintMismatch        = errors.New("mint mismatch")
	ErrUnauthorized        = errors.New("authority does not own source account")
	ErrSelfTransfer        = errors.New("source and destination are the same account")
	ErrWriteConflict       = errors.New("write conflict")
)
