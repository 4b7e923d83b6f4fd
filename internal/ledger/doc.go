// Package ledger provides the shared record and transition types for the
// trade-finance ledger.
//
// This package contains type definitions only. All other internal packages
// import ledger; ledger imports nothing internal.
//
// Three record kinds exist: PurchaseOrder, LetterOfCredit and BillOfLading.
// Records are immutable values. A Transaction replaces a set of live records
// (its inputs) with a new set (its outputs); the only way a LetterOfCredit
// changes status or a BillOfLading changes owner is by rebuilding the value
// with WithStatus / WithOwner inside a new transaction.
//
// Key design constraints:
//   - NO float types anywhere - quantities, prices and values are int64
//   - Transaction IDs are content-addressed (canonical JSON + SHA-256 with
//     domain separation), so every party derives the same ID independently
//   - Status is a closed enum; Status.Next is the only legal-successor table
//   - Op is a closed enum; consumers switch on it exhaustively
package ledger
