package main

import (
	"encoding/json"
	"fmt"
	"net/url"

	restservice "github.com/solestate/estated/internal/interface/rest"
	"github.com/urfave/cli/v2"
)

var (
	listPropertyCmd = cli.Command{
		Name:  "list-property",
		Usage: "List a new property for fractional sale",
		Flags: []cli.Flag{
			urlFlag, nameFlag, locationFlag, imageURLFlag, pricePerLotFlag,
			totalSharesFlag, issuerFlag, settlementAssetFlag,
		},
		Action: listPropertyAction,
	}
	propertiesCmd = cli.Command{
		Name:   "properties",
		Usage:  "List all properties",
		Flags:  []cli.Flag{urlFlag, marketplaceFlag},
		Action: propertiesAction,
	}
	propertyCmd = cli.Command{
		Name:   "property",
		Usage:  "Get a property by address",
		Flags:  []cli.Flag{urlFlag, propertyFlag},
		Action: propertyAction,
	}
	historyCmd = cli.Command{
		Name:   "history",
		Usage:  "Get the event history of a property",
		Flags:  []cli.Flag{urlFlag, propertyFlag},
		Action: historyAction,
	}
	quoteCmd = cli.Command{
		Name:   "quote",
		Usage:  "Quote the cost of buying shares of a property",
		Flags:  []cli.Flag{urlFlag, propertyFlag, sharesFlag},
		Action: quoteAction,
	}
	buySharesCmd = cli.Command{
		Name:   "buy-shares",
		Usage:  "Buy shares of a property",
		Flags:  []cli.Flag{urlFlag, propertyFlag, buyerFlag, sharesFlag, sourceFlag},
		Action: buySharesAction,
	}
	positionCmd = cli.Command{
		Name:   "position",
		Usage:  "Get the position of an investor in a property",
		Flags:  []cli.Flag{urlFlag, propertyFlag, ownerFlag},
		Action: positionAction,
	}
	portfolioCmd = cli.Command{
		Name:   "portfolio",
		Usage:  "Get every position of an investor",
		Flags:  []cli.Flag{urlFlag, ownerFlag},
		Action: portfolioAction,
	}
	accountCmd = cli.Command{
		Name:   "account",
		Usage:  "Get a token account",
		Flags:  []cli.Flag{urlFlag, addressFlag},
		Action: accountAction,
	}
	fundCmd = cli.Command{
		Name:   "fund",
		Usage:  "Credit settlement tokens to an investor (faucet must be enabled)",
		Flags: []cli.Flag{
			urlFlag, datadirFlag, macaroonFlag, ownerFlag, mintFlag, amountFlag,
		},
		Action: fundAction,
	}
	auditCmd = cli.Command{
		Name:   "audit",
		Usage:  "Check the registry invariants",
		Flags:  []cli.Flag{urlFlag, datadirFlag, macaroonFlag},
		Action: auditAction,
	}
)

func listPropertyAction(ctx *cli.Context) error {
	property, err := post[restservice.Property](
		baseURL(ctx)+"/v1/properties",
		restservice.ListPropertyRequest{
			Name:            ctx.String(nameFlagName),
			Location:        ctx.String(locationFlagName),
			ImageURL:        ctx.String(imageURLFlagName),
			PricePerLot:     restservice.Amount(ctx.Uint64(pricePerLotFlagName)),
			TotalShares:     restservice.Amount(ctx.Uint64(totalSharesFlagName)),
			Issuer:          ctx.String(issuerFlagName),
			SettlementAsset: ctx.String(settlementAssetFlagName),
		},
	)
	if err != nil {
		return err
	}
	return printJSON(property)
}

func propertiesAction(ctx *cli.Context) error {
	endpoint := baseURL(ctx) + "/v1/properties"
	if ctx.Bool(marketplaceFlagName) {
		endpoint += "?marketplace=true"
	}
	resp, err := get[map[string][]restservice.Property](endpoint)
	if err != nil {
		return err
	}
	return printJSON(resp["properties"])
}

func propertyAction(ctx *cli.Context) error {
	property, err := get[restservice.Property](propertyURL(ctx))
	if err != nil {
		return err
	}
	return printJSON(property)
}

func historyAction(ctx *cli.Context) error {
	resp, err := get[map[string][]json.RawMessage](propertyURL(ctx) + "/events")
	if err != nil {
		return err
	}
	return printJSON(resp["events"])
}

func quoteAction(ctx *cli.Context) error {
	quote, err := get[restservice.Quote](
		fmt.Sprintf("%s/quote?shares=%d", propertyURL(ctx), ctx.Uint64(sharesFlagName)),
	)
	if err != nil {
		return err
	}
	return printJSON(quote)
}

func buySharesAction(ctx *cli.Context) error {
	receipt, err := post[restservice.PurchaseReceipt](
		propertyURL(ctx)+"/buy",
		restservice.BuySharesRequest{
			Buyer:  ctx.String(buyerFlagName),
			Shares: restservice.Amount(ctx.Uint64(sharesFlagName)),
			Source: ctx.String(sourceFlagName),
		},
	)
	if err != nil {
		return err
	}
	return printJSON(receipt)
}

func positionAction(ctx *cli.Context) error {
	position, err := get[restservice.Position](
		propertyURL(ctx) + "/positions/" + url.PathEscape(ctx.String(ownerFlagName)),
	)
	if err != nil {
		return err
	}
	return printJSON(position)
}

func portfolioAction(ctx *cli.Context) error {
	portfolio, err := get[restservice.Portfolio](
		baseURL(ctx) + "/v1/investors/" + url.PathEscape(ctx.String(ownerFlagName)) + "/portfolio",
	)
	if err != nil {
		return err
	}
	return printJSON(portfolio)
}

func accountAction(ctx *cli.Context) error {
	account, err := get[restservice.Account](
		baseURL(ctx) + "/v1/accounts/" + url.PathEscape(ctx.String(addressFlagName)),
	)
	if err != nil {
		return err
	}
	return printJSON(account)
}

func fundAction(ctx *cli.Context) error {
	macaroon, err := getCredentials(ctx)
	if err != nil {
		return err
	}
	account, err := postWithMacaroon[restservice.Account](
		baseURL(ctx)+"/v1/faucet", macaroon,
		restservice.FundRequest{
			Owner:  ctx.String(ownerFlagName),
			Mint:   ctx.String(mintFlagName),
			Amount: restservice.Amount(ctx.Uint64(amountFlagName)),
		},
	)
	if err != nil {
		return err
	}
	return printJSON(account)
}

func auditAction(ctx *cli.Context) error {
	macaroon, err := getCredentials(ctx)
	if err != nil {
		return err
	}
	report, err := getWithMacaroon[restservice.AuditReport](
		baseURL(ctx)+"/v1/admin/audit", macaroon,
	)
	if err != nil {
		return err
	}
	if err := printJSON(report); err != nil {
		return err
	}
	if !report.Healthy {
		return fmt.Errorf("audit found %d violation(s)", len(report.Violations))
	}
	return nil
}

func propertyURL(ctx *cli.Context) string {
	return baseURL(ctx) + "/v1/properties/" + url.PathEscape(ctx.String(propertyFlagName))
}
