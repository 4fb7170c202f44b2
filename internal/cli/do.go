package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/httpdispatch/dispatcher"
	"github.com/kbukum/httpdispatch/resource"
)

var errSubscribers = errors.New("subscribers must be at least 1")

func newDoCommand(opts *rootOptions) *cobra.Command {
	req := &requestOptions{}
	var subscribers int

	cmd := &cobra.Command{
		Use:   "do METHOD URL",
		Short: "Dispatch one request and print the outcome",
		Example: `  httpdispatch do GET https://api.example.com/users/1
  httpdispatch do POST /items --base-url https://api.example.com --json -d '{"name":"pen"}'
  httpdispatch do GET /users/1 --subscribers 3 -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if subscribers < 1 {
				return usageError(errSubscribers)
			}
			res, err := req.build(args[0], args[1], cmd.InOrStdin())
			if err != nil {
				return usageError(err)
			}

			comp, err := opts.start(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = comp.Stop(context.Background()) }()

			outcomes := dispatchAll(cmd.Context(), comp.Dispatcher(), res, subscribers)
			if err := opts.printer(cmd).outcomes(describeRequest(res.Request()), outcomes); err != nil {
				return err
			}
			if err := outcomes[0].err; err != nil {
				return &exitError{code: exitCodeFor(err), err: err, silent: true}
			}
			return nil
		},
	}

	req.register(cmd.Flags())
	cmd.Flags().IntVarP(&subscribers, "subscribers", "s", 1, "Subscribers sharing one exchange")
	return cmd
}

// outcome is what one consumer of a dispatch observed.
type outcome struct {
	subscriber int
	resp       *dispatcher.Response[[]byte]
	err        error
	took       time.Duration
}

// dispatchAll runs res once. With more than one subscriber the result is
// shared through a stream and every subscriber reports separately.
func dispatchAll(ctx context.Context, d *dispatcher.Dispatcher, res dispatcher.Resource[[]byte, resource.MessageError], subscribers int) []outcome {
	start := time.Now()
	if subscribers <= 1 {
		resp, err := dispatcher.Dispatch(ctx, d, res)
		return []outcome{{resp: resp, err: err, took: time.Since(start)}}
	}

	stream := dispatcher.Publish(ctx, d, res)
	subs := make([]*dispatcher.Subscription[[]byte], subscribers)
	for i := range subs {
		subs[i] = stream.Subscribe()
	}

	out := make([]outcome, 0, subscribers)
	for i, sub := range subs {
		o := outcome{subscriber: i + 1}
		for ev := range sub.Events() {
			switch ev.Kind {
			case dispatcher.EventNext:
				o.resp = ev.Value
			case dispatcher.EventFailed:
				o.err = ev.Err
			}
		}
		o.took = time.Since(start)
		out = append(out, o)
	}
	return out
}
