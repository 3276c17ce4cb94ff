/*
Package backfill recovers superseded versions of genome assembly records.

# Overview

Assembly data report feeds only carry the current version of each
accession. When an assembly has been revised, its earlier versions still
exist upstream but are absent from the feed. This package walks a feed,
finds accessions whose current version is greater than one, discovers
their full version history, fetches the superseded versions' reports, and
appends them to a tabular output tagged versionStatus=superseded.

The engine is built for repeated, interruptible runs:
  - Discovery listings and fetched reports are cached on disk with TTLs,
    so a rerun does not repeat external calls.
  - Completed root accessions are recorded in a checkpoint, flushed in
    batches, so a rerun skips finished work.
  - A root's rows are emitted all at once or not at all; a crash never
    leaves a partial version history in the output.

# Basic Usage

Wire the collaborators and run:

	discovery := ncbi.NewDiscoveryClient(lister, discCache, 7*24*time.Hour)
	metadata := ncbi.NewMetadataClient(getter, metaCache, 30*24*time.Hour)

	orch, err := backfill.NewOrchestrator(backfill.OrchestratorConfig{
	    Discovery:  discovery,
	    Metadata:   metadata,
	    Checkpoint: ckpt,
	    Parser:     parser,
	    Sink:       sink,
	})
	if err != nil {
	    log.Fatal(err)
	}

	candidates, err := backfill.ReadCandidates(feed)
	if err != nil {
	    log.Fatal(err)
	}

	summary, err := orch.Run(ctx, candidates)

See cmd/backfill for a complete command-line front end.
*/
package backfill
