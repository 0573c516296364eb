package errors

import (
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	grpccodes "google.golang.org/grpc/codes"
)

// Class groups error codes by how a caller should react to them.
type Class string

const (
	ClassInternal   Class = "internal"
	ClassValidation Class = "validation"
	ClassArithmetic Class = "arithmetic"
	ClassConflict   Class = "conflict"
	ClassDependency Class = "dependency"
	ClassNotFound   Class = "not_found"
	ClassAuth       Class = "auth"
)

// Retryable reports whether resubmitting the same request may succeed.
func (c Class) Retryable() bool {
	return c == ClassConflict || c == ClassDependency
}

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code     uint16
	Name     string
	GrpcCode grpccodes.Code
	Class    Class
}

// New creates a new error with the given code and the message
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

// Is reports whether err carries this code.
func (c Code[MT]) Is(err error) bool {
	var e Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code() == c.Code
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	GrpcCode() grpccodes.Code
	Class() Class
	Message() string
	Metadata() map[string]string
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("class", e.code.Class).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	// convert any metadata to map[string]string
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err == nil {
		var genericMap map[string]any
		if err := json.Unmarshal(buf, &genericMap); err == nil {
			for k, v := range genericMap {
				vStr := ""
				if v != nil {
					vStr = fmt.Sprintf("%v", v)
				}
				metadata[k] = vStr
			}
		}
	}
	return metadata
}

func (e *ErrorImpl[MT]) GrpcCode() grpccodes.Code {
	return e.code.GrpcCode
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

func (e *ErrorImpl[MT]) Class() Class {
	if e.code.Class == "" {
		return ClassInternal
	}
	return e.code.Class
}

// Message returns the cause without the code prefix.
func (e *ErrorImpl[MT]) Message() string {
	return e.cause.Error()
}

// Error() implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) Unwrap() error {
	return e.cause
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

type ListingMetadata struct {
	Name            string `json:"name,omitempty"`
	Property        string `json:"property,omitempty"`
	Vault           string `json:"vault,omitempty"`
	Field           string `json:"field,omitempty"`
	Length          int    `json:"length,omitempty"`
	MaxLength       int    `json:"max_length,omitempty"`
	Issuer          string `json:"issuer,omitempty"`
	SettlementAsset string `json:"settlement_asset,omitempty"`
}

type OversoldMetadata struct {
	Property    string `json:"property"`
	Requested   uint64 `json:"requested"`
	SharesSold  uint64 `json:"shares_sold"`
	TotalShares uint64 `json:"total_shares"`
}

type AssetMismatchMetadata struct {
	Account  string `json:"account"`
	Expected string `json:"expected"`
	Got      string `json:"got"`
}

type OwnerMismatchMetadata struct {
	Account  string `json:"account"`
	Expected string `json:"expected"`
	Got      string `json:"got"`
}

type OverflowMetadata struct {
	Operation string `json:"operation"`
	Left      uint64 `json:"left"`
	Right     uint64 `json:"right"`
}

type TransferMetadata struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Mint   string `json:"mint"`
	Amount uint64 `json:"amount"`
	Reason string `json:"reason"`
}

type PropertyMetadata struct {
	Property string `json:"property"`
}

type PositionMetadata struct {
	Property string `json:"property"`
	Owner    string `json:"owner"`
}

type AccountMetadata struct {
	Account string `json:"account"`
}

type AddressMetadata struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type RequestMetadata struct {
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type WriteConflictMetadata struct {
	Attempts int `json:"attempts"`
}

var INTERNAL_ERROR = Code[map[string]any]{0, "INTERNAL_ERROR", grpccodes.Internal, ClassInternal}

var INVALID_TERMS = Code[ListingMetadata]{
	1,
	"INVALID_TERMS",
	grpccodes.InvalidArgument,
	ClassValidation,
}

var DUPLICATE_LISTING = Code[ListingMetadata]{
	2,
	"DUPLICATE_LISTING",
	grpccodes.AlreadyExists,
	ClassConflict,
}

var OVERSOLD = Code[OversoldMetadata]{3, "OVERSOLD", grpccodes.FailedPrecondition, ClassValidation}

var ASSET_MISMATCH = Code[AssetMismatchMetadata]{
	4,
	"ASSET_MISMATCH",
	grpccodes.InvalidArgument,
	ClassValidation,
}

var OWNER_MISMATCH = Code[OwnerMismatchMetadata]{
	5,
	"OWNER_MISMATCH",
	grpccodes.PermissionDenied,
	ClassValidation,
}

var ARITHMETIC_OVERFLOW = Code[OverflowMetadata]{
	6,
	"ARITHMETIC_OVERFLOW",
	grpccodes.OutOfRange,
	ClassArithmetic,
}

var TRANSFER_REJECTED = Code[TransferMetadata]{
	7,
	"TRANSFER_REJECTED",
	grpccodes.FailedPrecondition,
	ClassDependency,
}

var PROPERTY_NOT_FOUND = Code[PropertyMetadata]{
	8,
	"PROPERTY_NOT_FOUND",
	grpccodes.NotFound,
	ClassNotFound,
}

var POSITION_NOT_FOUND = Code[PositionMetadata]{
	9,
	"POSITION_NOT_FOUND",
	grpccodes.NotFound,
	ClassNotFound,
}

var ACCOUNT_NOT_FOUND = Code[AccountMetadata]{
	10,
	"ACCOUNT_NOT_FOUND",
	grpccodes.NotFound,
	ClassNotFound,
}

var WRITE_CONFLICT = Code[WriteConflictMetadata]{
	11,
	"WRITE_CONFLICT",
	grpccodes.Aborted,
	ClassConflict,
}

var INVALID_SHARES_AMOUNT = Code[OversoldMetadata]{
	12,
	"INVALID_SHARES_AMOUNT",
	grpccodes.InvalidArgument,
	ClassValidation,
}

var INVALID_ADDRESS = Code[AddressMetadata]{
	13,
	"INVALID_ADDRESS",
	grpccodes.InvalidArgument,
	ClassValidation,
}

var FAUCET_DISABLED = Code[any]{14, "FAUCET_DISABLED", grpccodes.Unimplemented, ClassValidation}

var INVALID_REQUEST = Code[RequestMetadata]{
	15,
	"INVALID_REQUEST",
	grpccodes.InvalidArgument,
	ClassValidation,
}

// Is and As forward to the standard library so callers need a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

var UNAUTHENTICATED = Code[RequestMetadata]{
	16,
	"UNAUTHENTICATED",
	grpccodes.Unauthenticated,
	ClassAuth,
}

var PERMISSION_DENIED = Code[RequestMetadata]{
	17,
	"PERMISSION_DENIED",
	grpccodes.PermissionDenied,
	ClassAuth,
}
