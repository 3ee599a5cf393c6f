/*
Package domain contains the core domain models for the Pledge engine.

It defines the fundamental entities of the confirmation workflow, such as
Proposals, their lifecycle Statuses, and the typed Results returned by engine
operations. This package is kept pure and free of external dependencies like
I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Proposal: A pending, time-bounded offer from an initiator to a responder.
  - Status: The lifecycle state (Pending plus four terminal states).
  - Result: A structural outcome of an engine call that adapters render.
  - Payloads: Kind-specific data carried by a proposal and consumed on accept.
*/
package domain
