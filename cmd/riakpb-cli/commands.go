package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pior/riakpb"
	"github.com/pior/riakpb/pbc"
	"github.com/pior/riakpb/schema"
)

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *riakpb.Client) error {
				if err := c.Ping(ctx); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "PONG")
				return nil
			})
		},
	}
}

func (a *app) serverInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server-info",
		Short: "Print the node name and server version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *riakpb.Client) error {
				info, err := c.GetServerInfo(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "node: %s\nversion: %s\n", info.Node, info.ServerVersion)
				return nil
			})
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	var bucketType string

	cmd := &cobra.Command{
		Use:   "get <bucket> <key>",
		Short: "Fetch an object and print its siblings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *riakpb.Client) error {
				body, err := c.Get(ctx, withType(pbc.Body{"bucket": args[0], "key": args[1]}, bucketType))
				if err != nil {
					return err
				}
				if content, _ := body["content"].([]any); len(content) == 0 {
					return fmt.Errorf("%s/%s: not found", args[0], args[1])
				}

				parsed, err := schema.ParseContent(body)
				if err != nil {
					return err
				}
				return a.printJSON(parsed["content"])
			})
		},
	}
	cmd.Flags().StringVar(&bucketType, "type", "", "bucket type")
	return cmd
}

func (a *app) putCmd() *cobra.Command {
	var (
		bucketType  string
		key         string
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "put <bucket> <value>",
		Short: "Store an object, under a generated key unless --key is set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				key = uuid.NewString()
			}
			return a.run(cmd, func(ctx context.Context, c *riakpb.Client) error {
				_, err := c.Put(ctx, withType(pbc.Body{
					"bucket": args[0],
					"key":    key,
					"content": pbc.Body{
						"value":        []byte(args[1]),
						"content_type": contentType,
					},
				}, bucketType))
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, key)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bucketType, "type", "", "bucket type")
	cmd.Flags().StringVar(&key, "key", "", "object key (default: a random UUID)")
	cmd.Flags().StringVar(&contentType, "content-type", "text/plain", "content type of the value")
	return cmd
}

func (a *app) delCmd() *cobra.Command {
	var bucketType string

	cmd := &cobra.Command{
		Use:   "del <bucket> <key>",
		Short: "Delete an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *riakpb.Client) error {
				return c.Del(ctx, withType(pbc.Body{"bucket": args[0], "key": args[1]}, bucketType))
			})
		},
	}
	cmd.Flags().StringVar(&bucketType, "type", "", "bucket type")
	return cmd
}

func (a *app) keysCmd() *cobra.Command {
	var bucketType string

	cmd := &cobra.Command{
		Use:   "keys <bucket>",
		Short: "List the keys of a bucket as the server streams them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *riakpb.Client) error {
				s := c.StreamKeys(ctx, withType(pbc.Body{"bucket": args[0]}, bucketType))
				for batch, err := range s.All(ctx) {
					if err != nil {
						return err
					}
					keys, _ := batch["keys"].([]any)
					for _, k := range keys {
						fmt.Fprintln(a.out, k)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bucketType, "type", "", "bucket type")
	return cmd
}

func (a *app) bucketsCmd() *cobra.Command {
	var bucketType string

	cmd := &cobra.Command{
		Use:   "buckets",
		Short: "List the buckets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *riakpb.Client) error {
				buckets, err := c.ListBuckets(ctx, withType(nil, bucketType))
				if err != nil {
					return err
				}
				for _, b := range buckets {
					fmt.Fprintln(a.out, b)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bucketType, "type", "", "bucket type")
	return cmd
}

func (a *app) bucketPropsCmd() *cobra.Command {
	var bucketType string

	cmd := &cobra.Command{
		Use:   "bucket-props <bucket>",
		Short: "Print the properties of a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *riakpb.Client) error {
				props, err := c.GetBucket(ctx, withType(pbc.Body{"bucket": args[0]}, bucketType))
				if err != nil {
					return err
				}
				return a.printJSON(props)
			})
		},
	}
	cmd.Flags().StringVar(&bucketType, "type", "", "bucket type")
	return cmd
}

func (a *app) counterCmd() *cobra.Command {
	var incr int64

	cmd := &cobra.Command{
		Use:   "counter <bucket> <key>",
		Short: "Print a counter, after incrementing it by --incr",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := pbc.Body{"bucket": args[0], "key": args[1]}

			return a.run(cmd, func(ctx context.Context, c *riakpb.Client) error {
				if incr != 0 {
					body, err := c.UpdateCounter(ctx, pbc.Body{
						"bucket":      args[0],
						"key":         args[1],
						"amount":      incr,
						"returnvalue": true,
					})
					if err != nil {
						return err
					}
					fmt.Fprintln(a.out, body["value"])
					return nil
				}

				v, err := c.GetCounter(ctx, params)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, v)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&incr, "incr", 0, "amount to add first")
	return cmd
}

func (a *app) indexCmd() *cobra.Command {
	var (
		bucketType string
		maxResults uint32
	)

	cmd := &cobra.Command{
		Use:   "index <bucket> <index> <value> | <bucket> <index> <min> <max>",
		Short: "Query a secondary index by value or by range",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := pbc.Body{"bucket": args[0], "index": args[1]}
			if len(args) == 3 {
				params["qtype"] = "eq"
				params["key"] = args[2]
			} else {
				params["qtype"] = "range"
				params["range_min"] = args[2]
				params["range_max"] = args[3]
			}
			if maxResults > 0 {
				params["max_results"] = maxResults
			}

			return a.run(cmd, func(ctx context.Context, c *riakpb.Client) error {
				body, err := c.GetIndex(ctx, withType(params, bucketType))
				if err != nil {
					return err
				}
				keys, _ := body["keys"].([]any)
				for _, k := range keys {
					fmt.Fprintln(a.out, k)
				}
				if cont, ok := body["continuation"]; ok {
					fmt.Fprintf(a.out, "continuation: %v\n", cont)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bucketType, "type", "", "bucket type")
	cmd.Flags().Uint32Var(&maxResults, "max-results", 0, "page size")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var rows uint32

	cmd := &cobra.Command{
		Use:   "search <index> <query>",
		Short: "Run a full-text query",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := pbc.Body{"index": args[0], "q": args[1]}
			if rows > 0 {
				params["rows"] = rows
			}

			return a.run(cmd, func(ctx context.Context, c *riakpb.Client) error {
				body, err := c.Search(ctx, params)
				if err != nil {
					return err
				}
				return a.printJSON(body)
			})
		},
	}
	cmd.Flags().Uint32Var(&rows, "rows", 0, "maximum number of documents")
	return cmd
}

func withType(params pbc.Body, bucketType string) pbc.Body {
	if bucketType == "" {
		return params
	}
	if params == nil {
		params = pbc.Body{}
	}
	params["type"] = bucketType
	return params
}
