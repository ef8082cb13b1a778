// Package core provides the business logic of the residents' welfare
// association portal.
//
// The association's records live in a spreadsheet. This package is the
// only code that knows the layout of its tabs; web handlers, the CLI and
// tests all go through [Service].
//
// # Architecture
//
//   - Tab Definitions: Registered via the registry, each tab has a name,
//     header columns and, for tabs with generated IDs, an ID prefix.
//   - Service: The entry point for all operations (members, payments,
//     complaints, expenditure, notifications, reports).
//   - Rows: Conversions between raw cell values and domain types.
//   - Audit: Every mutation is recorded in an [audit.Store].
//
// # Tab Registry
//
// Tabs are registered at init time using [Register]:
//
//	core.Register(TabDefinition{
//	    Key:      TabComplaints,
//	    Name:     "Complaints",
//	    Columns:  []string{"ID", "Flat No", ...},
//	    IDPrefix: "CMP-",
//	})
//
// # Reading and Writing Rows
//
// Data row i (0-based, header excluded) is sheet row i+2. Every operation
// reads the whole tab, scans it, and then appends or overwrites cells by
// row index. Mutations hold the tab's lock for the whole sequence so two
// requests in one process cannot both see the same "next" receipt number
// or both pass the one-active-member check.
//
// # Dates and Amounts
//
// Cells are written as 2006-01-02 (dates), 2006-01 (months) and two
// decimal amounts. Reading accepts what people type into spreadsheets:
// day-first dates, month names, spreadsheet serial numbers, currency
// symbols and accounting negatives. See [ParseDate], [ParseMonth] and
// [ParseAmount].
//
// # Error Handling
//
// Operations return wrapped sentinel errors ([ErrNotFound], [ErrAlreadyPaid],
// ...). [MapError] turns any error into a [UserMessage] with a support code
// and HTTP status.
//
// # Background Jobs
//
// [Service.StartScheduler] posts the monthly dues reminder and backs up
// the local workbook to blob storage.
package core
