/*
Package pledge is an ephemeral proposal/confirmation workflow engine: one
party proposes, the other must explicitly accept or reject before a deadline,
and exactly one outcome wins no matter how the answers race.

It grew out of chat-bot commands (marriage proposals, broadcast approvals,
destructive-action confirmations) but the core is generic: any interaction of
the form "offer, wait for the counterpart, fire a side effect on accept" fits.

# Concept

A Proposal is an offer from an initiator to a responder with a deadline. Each
responder holds at most one pending proposal at a time. All mutations go
through a compare-and-set transition on the store, so a response, a cancel,
the expiry timer, and the background sweep can race freely: the first to win
the transition decides the outcome and everyone else observes it.

On accept, the engine fires the OutcomeApplier registered for the proposal's
kind (debit and link accounts, enqueue a broadcast job, execute a confirmed
action). Appliers see each proposal at most once.

Store backends are pluggable behind ports.ProposalStore: in-memory, Redis,
and Postgres adapters ship in pkg/adapters. Time is pluggable behind
ports.TimerSource, with a deterministic fake in pkg/clock for tests.

# Usage

	package main

	import (
		"context"
		"log"
		"time"

		"github.com/aretw0/pledge"
		"github.com/aretw0/pledge/pkg/domain"
		"github.com/aretw0/pledge/pkg/ports"
	)

	func main() {
		svc := pledge.New(
			pledge.WithApplier(domain.KindMarriage, ports.ApplierFunc(
				func(ctx context.Context, p *domain.Proposal) error {
					log.Println("married:", p.InitiatorID, p.ResponderID)
					return nil
				})),
		)

		ctx := context.Background()
		res, err := svc.Propose(ctx, "alice", "bob", domain.KindMarriage, nil, 5*time.Minute)
		if err != nil {
			log.Fatal(err)
		}
		log.Println("proposal:", res.Proposal.ID)

		res, err = svc.Respond(ctx, "bob", "alice", domain.DecisionAccept)
		if err != nil {
			log.Fatal(err)
		}
		log.Println("outcome:", res.Code)
	}
*/
package pledge
