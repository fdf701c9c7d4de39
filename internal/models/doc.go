// Package models defines the core domain models for societyhub.
//
// # Hierarchy
//
// A Society is the tenant boundary. Buildings, Flats, Users, Notices and Bills
// all carry the SocietyID of the society they belong to:
//   - Society: top-level residential society
//   - Building: a block inside a society
//   - Flat: one unit; its owner is assigned lazily
//   - User: any account, scoped by Role and SocietyID
//   - Agreement: one tenancy contract for a flat (full history is kept)
//   - Notice / NoticeRecipient: announcements and their optional audience
//   - Bill: maintenance bills and complaints sharing one workflow
//   - Document: identity and agreement files attached to a user
//
// # Conventions
//
// Relationships are ID strings, never pointers. Optional references use the
// empty string for "unset". Timestamps are Unix seconds unless a field says
// otherwise.
package models
