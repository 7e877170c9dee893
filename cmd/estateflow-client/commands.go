package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli"

	estateflowclient "github.com/estateflow-io/estateflow-client/internal/estateflow-client"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/contract"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/helpers"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/requests"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/submit"
)

var (
	propertyFlag    = cli.StringFlag{Name: "property", Usage: "property name"}
	amountFlag      = cli.StringFlag{Name: "amount", Usage: "loan amount in ETH"}
	descriptionFlag = cli.StringFlag{Name: "description", Usage: "property description"}
	collateralFlag  = cli.StringFlag{Name: "collateral", Usage: "collateral type", Value: "Real Estate"}
	termFlag        = cli.StringFlag{Name: "term", Usage: "loan term in months", Value: "12"}
	yieldFlag       = cli.StringFlag{Name: "yield", Usage: "yield preference in percent", Value: "8"}
	imageFlag       = cli.StringFlag{Name: "image", Usage: "property image path or URL"}
	statusFlag      = cli.StringFlag{Name: "status", Usage: "filter by status (Open, Pending, Completed, Rejected)"}
)

func commands() []cli.Command {
	return []cli.Command{
		{
			Name:   "serve",
			Usage:  "serve the loopback API (default)",
			Action: serve,
		},
		{
			Name:   "status",
			Usage:  "show wallet session, network and cache state",
			Action: status,
		},
		{
			Name:   "connect",
			Usage:  "ask the wallet to authorize an account",
			Action: connect,
		},
		{
			Name:   "networks",
			Usage:  "list configured networks",
			Action: listNetworks,
		},
		{
			Name:  "submit",
			Usage: "submit a new EstateFlow request through the wallet",
			Flags: []cli.Flag{
				propertyFlag, amountFlag, descriptionFlag, collateralFlag, termFlag, yieldFlag, imageFlag,
			},
			Action: submitRequest,
		},
		{
			Name:  "requests",
			Usage: "inspect or manage the local request cache",
			Subcommands: []cli.Command{
				{Name: "list", Usage: "list cached requests", Flags: []cli.Flag{statusFlag}, Action: listRequests},
				{Name: "stats", Usage: "cache statistics", Action: requestStats},
				{Name: "reset", Usage: "replace the cache with the seed requests", Action: resetRequests},
				{Name: "clear", Usage: "remove the stored cache", Action: clearRequests},
				{Name: "inspect", Usage: "show what the storage backend holds", Action: inspectRequests},
			},
		},
		{
			Name:  "onchain",
			Usage: "read the EstateFlow contract through the configured node",
			Subcommands: []cli.Command{
				{Name: "total", Usage: "total number of requests", Action: onChainTotal},
				{Name: "get", Usage: "get <id>", ArgsUsage: "<id>", Action: onChainGet},
				{Name: "by-creator", Usage: "by-creator <address>", ArgsUsage: "<address>", Action: onChainByCreator},
				{Name: "head", Usage: "latest block seen by the node", Action: onChainHead},
				{Name: "probe", Usage: "check the node serves the configured network", Action: onChainProbe},
			},
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func status(*cli.Context) error {
	return withApp(func(ctx context.Context, app *estateflowclient.App) error {
		s := app.Tracker.Snapshot()
		fmt.Printf("Wallet:    installed=%t state=%s\n", s.IsInstalled, s.State)
		if s.Account != "" {
			fmt.Printf("Account:   %s\n", helpers.ShortAddress(s.Account))
		}
		fmt.Printf("Role:      %s\n", app.Tracker.Role())
		fmt.Printf("Network:   %s (%s)\n", app.Network.Label(), app.Network.ChainIDHex)
		fmt.Printf("Contract:  %s\n", app.Contract.Address().Hex())

		stats, err := app.Store.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Cache:     %s, %d requests (%d open, %d pending)\n",
			app.Store.Backend().Name(), stats.Total, stats.Open, stats.Pending)
		return nil
	})
}

func listNetworks(*cli.Context) error {
	return withApp(func(_ context.Context, app *estateflowclient.App) error {
		for _, n := range app.Chains.Registry().List() {
			marker := " "
			if n.Name == app.Network.Name {
				marker = "*"
			}
			fmt.Printf("%s %-10s %-9s %-24s %s\n", marker, n.Name, n.ChainIDHex, n.Label(), n.Explorer)
		}
		return nil
	})
}

func connect(*cli.Context) error {
	return withApp(func(ctx context.Context, app *estateflowclient.App) error {
		if err := app.Tracker.Connect(ctx); err != nil {
			return err
		}
		fmt.Printf("Connected: %s\n", app.Tracker.Account())
		return nil
	})
}

func submitForm(c *cli.Context) (submit.FormData, error) {
	form := submit.FormData{
		PropertyName:    c.String(propertyFlag.Name),
		LoanAmount:      c.String(amountFlag.Name),
		Description:     c.String(descriptionFlag.Name),
		CollateralType:  c.String(collateralFlag.Name),
		LoanTerm:        c.String(termFlag.Name),
		YieldPreference: c.String(yieldFlag.Name),
		PropertyImage:   c.String(imageFlag.Name),
	}
	if !helpers.IsInteractive() {
		return form, nil
	}

	p := helpers.NewPrompter(os.Stdin, os.Stdout)
	required := []struct {
		label string
		dst   *string
	}{
		{"Property name", &form.PropertyName},
		{"Loan amount (ETH)", &form.LoanAmount},
		{"Description", &form.Description},
	}
	for _, r := range required {
		if strings.TrimSpace(*r.dst) != "" {
			continue
		}
		v, err := p.Required(r.label)
		if err != nil {
			return form, err
		}
		*r.dst = v
	}
	form.CollateralType = p.LineWithDefault("Collateral type", form.CollateralType)
	form.LoanTerm = p.LineWithDefault("Loan term (months)", form.LoanTerm)
	form.YieldPreference = p.LineWithDefault("Yield preference (%)", form.YieldPreference)
	return form, nil
}

func submitRequest(c *cli.Context) error {
	form, err := submitForm(c)
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, app *estateflowclient.App) error {
		if app.Tracker.Account() == "" {
			if err := app.Tracker.Connect(ctx); err != nil {
				return err
			}
		}
		fmt.Println("Confirm the transaction in your wallet...")
		res, err := app.Submitter.Submit(ctx, form)
		if err != nil {
			return err
		}
		fmt.Printf("Request %s created in block %d\n", res.RequestID, res.Transaction.BlockNumber)
		if res.Transaction.ExplorerURL != "" {
			fmt.Println(res.Transaction.ExplorerURL)
		}
		return nil
	})
}

func listRequests(c *cli.Context) error {
	return withApp(func(ctx context.Context, app *estateflowclient.App) error {
		var (
			list []requests.Request
			err  error
		)
		if s := c.String(statusFlag.Name); s != "" {
			st, perr := requests.ParseStatus(s)
			if perr != nil {
				return perr
			}
			list, err = app.Store.ByStatus(ctx, st)
		} else {
			list, err = app.Store.List(ctx)
		}
		if err != nil {
			return err
		}
		for _, r := range list {
			fmt.Printf("%-14s %-10s %6.2f ETH  %4.1f%%  %3d mo  %d/%d proofs  %s\n",
				r.ID, r.Status, r.LoanAmount, r.Rate, r.Months, r.ProofSubmitted, r.TotalProofs, r.Property)
		}
		return nil
	})
}

func requestStats(*cli.Context) error {
	return withApp(func(ctx context.Context, app *estateflowclient.App) error {
		stats, err := app.Store.Stats(ctx)
		if err != nil {
			return err
		}
		return printJSON(stats)
	})
}

func resetRequests(*cli.Context) error {
	return withApp(func(ctx context.Context, app *estateflowclient.App) error {
		if err := app.Store.Reset(ctx); err != nil {
			return err
		}
		fmt.Println("Request cache reset to seed data.")
		return nil
	})
}

func clearRequests(*cli.Context) error {
	return withApp(func(ctx context.Context, app *estateflowclient.App) error {
		if err := app.Store.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("Request cache cleared.")
		return nil
	})
}

func inspectRequests(*cli.Context) error {
	return withApp(func(ctx context.Context, app *estateflowclient.App) error {
		in, err := app.Store.Inspect(ctx)
		if err != nil {
			return err
		}
		return printJSON(in)
	})
}

func requireOnChain(app *estateflowclient.App) (*estateflowclient.OnChainView, error) {
	if app.OnChain == nil {
		return nil, errors.Newf("network %s has no rpc endpoint configured", app.Network.Name)
	}
	return app.OnChain, nil
}

func onChainTotal(*cli.Context) error {
	return withApp(func(ctx context.Context, app *estateflowclient.App) error {
		view, err := requireOnChain(app)
		if err != nil {
			return err
		}
		total, err := view.GetTotalRequests(ctx)
		if err != nil {
			return err
		}
		fmt.Println(total.String())
		return nil
	})
}

func printOnChain(r contract.OnChainRequest) {
	fmt.Printf("#%s %-10s %s ETH  %s mo  %s%%  %s  by %s\n",
		r.Id, contract.Status(r.Status), helpers.FormatUnitsTrim(r.LoanAmount, 18, 4),
		r.LoanTerm, r.YieldPreference, r.PropertyName, helpers.ShortAddress(r.Creator.Hex()))
}

func onChainGet(c *cli.Context) error {
	id, ok := new(big.Int).SetString(c.Args().First(), 10)
	if !ok {
		return errors.Newf("invalid request id %q", c.Args().First())
	}
	return withApp(func(ctx context.Context, app *estateflowclient.App) error {
		view, err := requireOnChain(app)
		if err != nil {
			return err
		}
		r, err := view.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		printOnChain(r)
		return nil
	})
}

func onChainByCreator(c *cli.Context) error {
	arg := c.Args().First()
	return withApp(func(ctx context.Context, app *estateflowclient.App) error {
		creator := arg
		if creator == "" {
			creator = app.Tracker.Account()
		}
		if !common.IsHexAddress(creator) {
			return errors.Newf("invalid creator address %q", creator)
		}
		view, err := requireOnChain(app)
		if err != nil {
			return err
		}
		list, err := view.RequestsByCreator(ctx, common.HexToAddress(creator))
		if err != nil {
			return err
		}
		for _, r := range list {
			printOnChain(r)
		}
		return nil
	})
}

func onChainHead(*cli.Context) error {
	return withApp(func(ctx context.Context, app *estateflowclient.App) error {
		view, err := requireOnChain(app)
		if err != nil {
			return err
		}
		h, at, err := view.LatestHeader(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Block %s  %s  (fetched %s)\n", h.Number, h.Hash().Hex(), at.Format("15:04:05"))
		return nil
	})
}

func onChainProbe(*cli.Context) error {
	return withApp(func(ctx context.Context, app *estateflowclient.App) error {
		view, err := requireOnChain(app)
		if err != nil {
			return err
		}
		info, err := view.Probe(ctx)
		if printErr := printJSON(info); printErr != nil {
			return printErr
		}
		return err
	})
}
