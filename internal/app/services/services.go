package services

// Services defined in this package:
// - LedgerService: the only writer of ticket balances, item stock and purchases
// - QueryService: read-only rosters, statistics and histories
// - StudentService: student roster administration and student passwords
// - ItemService: item catalogue administration, images and CSV import/export
// - AuthService: student and teacher logins
