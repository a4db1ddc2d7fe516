/*
Package storage provides the pluggable storage abstraction for pingmon latency samples.

# Storage Interface

Backends implement the Storage interface:

	type Storage interface {
	    Append(ctx context.Context, s ping.Sample) error
	    Stream(ctx context.Context) ping.Stream
	    Files(ctx context.Context) ([]string, error)
	    ReadFile(ctx context.Context, name string) ([]byte, error)
	    Close() error
	}

  - logfile: one text file per calendar day (production)
  - memory: in-memory samples grouped into virtual daily files (testing)

# On-disk Layout

The log directory holds files named YYMMDD.txt. Each line is one sample:

	1575021600 11.5
	1575021660 1000

The first field is the Unix time in seconds, the second the round-trip latency
in milliseconds. A latency of 1000 or more marks a lost sample. Lines are
ASCII, newline-terminated, with no header or checksum. Any other entry in the
directory is ignored.

# Retention

Files dated more than RetentionPeriod (8 weeks) before now are deleted. The
logfile backend prunes once per day, right before it creates the new day's file.

# Usage Example

	store, err := logfile.New(logfile.Config{Dir: "./log"})
	if err != nil {
	    log.Fatal(err)
	}

	// Append a sample
	err = store.Append(ctx, ping.Sample{Time: time.Now().Unix(), Latency: 12.3})

	// Read the newest 60 samples
	samples, err := ping.Select(store.Stream(ctx), ping.Range{Count: 60})
*/
package storage
