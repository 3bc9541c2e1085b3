// Package models defines the core domain models for splitbill.
//
// # Models
//
//   - Receipt: an immutable parsed or manually entered bill with its
//     charge rates (tax, service, rounding) and line items
//   - ReceiptItem: one line item of a receipt, created atomically with it
//   - UserSelection: one participant's claimed subset of a receipt's items
//     plus share divisors, and the cached allocation computed from them
//   - User: a registered account; the identity behind every request
//
// # Design Principles
//
//  1. Receipts never mutate after creation; a wrong parse means re-upload.
//  2. Relationships are ID strings, not pointers, to avoid circular
//     references between receipts and selections.
//  3. A UserSelection references its receipt's items weakly: stale item IDs
//     are tolerated (they contribute nothing) rather than breaking old
//     selections after upstream data changes.
//  4. The cached allocation fields on UserSelection are a pure function of
//     the receipt and the selection; they are rewritten on every save and
//     may be reproduced at any time with the allocation package.
package models
