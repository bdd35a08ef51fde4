package errors

import "fmt"

// Error code constants. Errors carry code + message; handlers render both.

// VM error codes.
const (
	CodeVMNotFound = "VM_NOT_FOUND"
	CodeVMExists   = "VM_ALREADY_EXISTS"
)

// Migration error codes.
const (
	CodeMigrationNotFound = "MIGRATION_NOT_FOUND"
	CodeMigrationConflict = "MIGRATION_CONFLICT"
)

// Task error codes.
const (
	CodeTaskNotFound = "TASK_NOT_FOUND"
)

// Validation error codes.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
)

// Convenience constructors using predefined codes.

// VMNotFoundf creates a VM not found error for the given record ID.
func VMNotFoundf(vmID int64) *AppError {
	return NotFound(CodeVMNotFound, fmt.Sprintf("virtual machine with id %d not found", vmID))
}

// VMExistsf creates a duplicate-UUID conflict error.
func VMExistsf(uuid string) *AppError {
	return Conflict(CodeVMExists, fmt.Sprintf("virtual machine with UUID %s already exists", uuid))
}

// MigrationNotFoundf creates a migration not found error for the given record ID.
func MigrationNotFoundf(migrationID int64) *AppError {
	return NotFound(CodeMigrationNotFound, fmt.Sprintf("migration with id %d not found", migrationID))
}

// MigrationConflictf creates a 409 error for an action attempted against a
// migration in an ineligible status.
func MigrationConflictf(format string, args ...any) *AppError {
	return Conflict(CodeMigrationConflict, fmt.Sprintf(format, args...))
}
