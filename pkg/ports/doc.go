/*
Package ports defines the driven ports (interfaces) for the Pledge engine.

These interfaces decouple the core logic from external implementations,
allowing the engine to work with various storage backends, clocks, and
outcome side effects.

# Key Interfaces

  - ProposalStore: Responsible for persisting proposals; its Put and
    Transition operations must be atomic against concurrent callers.
  - TimerSource: Supplies the current time and schedules cancelable
    callbacks, so tests can advance a fake clock deterministically.
  - OutcomeApplier: Performs the kind-specific side effect when a
    proposal is accepted.
  - ChatClient: The outbound chat-platform surface used by command
    adapters (never by the engine itself).
*/
package ports
