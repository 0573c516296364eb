package main

import (
	"fmt"
	"time"

	"github.com/solestate/estated/internal/config"
	"github.com/urfave/cli/v2"
)

const (
	urlFlagName             = "url"
	nameFlagName            = "name"
	locationFlagName        = "location"
	imageURLFlagName        = "image-url"
	pricePerLotFlagName     = "price-per-lot"
	totalSharesFlagName     = "total-shares"
	issuerFlagName          = "issuer"
	settlementAssetFlagName = "settlement-asset"
	propertyFlagName        = "property"
	buyerFlagName           = "buyer"
	sharesFlagName          = "shares"
	sourceFlagName          = "source"
	ownerFlagName           = "owner"
	addressFlagName         = "address"
	mintFlagName            = "mint"
	amountFlagName          = "amount"
	datadirFlagName         = "datadir"
	macaroonFlagName        = "macaroon"
	marketplaceFlagName     = "marketplace"

	timeout = 15 * time.Second
)

var defaultURL = fmt.Sprintf("http://127.0.0.1:%d", config.DefaultPort)

var (
	urlFlag = &cli.StringFlag{
		Name:  urlFlagName,
		Usage: "the url where to reach estated",
		Value: defaultURL,
	}
	nameFlag = &cli.StringFlag{
		Name:     nameFlagName,
		Usage:    "the property name, at most 32 bytes",
		Required: true,
	}
	locationFlag = &cli.StringFlag{
		Name:  locationFlagName,
		Usage: "the property location",
	}
	imageURLFlag = &cli.StringFlag{
		Name:  imageURLFlagName,
		Usage: "the property image url",
	}
	pricePerLotFlag = &cli.Uint64Flag{
		Name:     pricePerLotFlagName,
		Usage:    "price of the whole lot in base units of the settlement asset",
		Required: true,
	}
	totalSharesFlag = &cli.Uint64Flag{
		Name:     totalSharesFlagName,
		Usage:    "number of shares the lot is split into",
		Required: true,
	}
	issuerFlag = &cli.StringFlag{
		Name:     issuerFlagName,
		Usage:    "public key of the listing issuer",
		Required: true,
	}
	settlementAssetFlag = &cli.StringFlag{
		Name:     settlementAssetFlagName,
		Usage:    "mint of the settlement asset",
		Required: true,
	}
	propertyFlag = &cli.StringFlag{
		Name:     propertyFlagName,
		Usage:    "address of the property",
		Required: true,
	}
	buyerFlag = &cli.StringFlag{
		Name:     buyerFlagName,
		Usage:    "public key of the buyer",
		Required: true,
	}
	sharesFlag = &cli.Uint64Flag{
		Name:     sharesFlagName,
		Usage:    "number of shares",
		Required: true,
	}
	sourceFlag = &cli.StringFlag{
		Name:  sourceFlagName,
		Usage: "token account paying for the shares, defaults to the buyer's associated account",
	}
	ownerFlag = &cli.StringFlag{
		Name:     ownerFlagName,
		Usage:    "public key of the investor",
		Required: true,
	}
	addressFlag = &cli.StringFlag{
		Name:     addressFlagName,
		Usage:    "address of the token account",
		Required: true,
	}
	mintFlag = &cli.StringFlag{
		Name:     mintFlagName,
		Usage:    "mint of the tokens to credit",
		Required: true,
	}
	amountFlag = &cli.Uint64Flag{
		Name:     amountFlagName,
		Usage:    "amount in base units",
		Required: true,
	}
	datadirFlag = &cli.StringFlag{
		Name:  datadirFlagName,
		Usage: "estated datadir from where to source the admin macaroon if needed",
		Value: config.Datadir.Value,
	}
	marketplaceFlag = &cli.BoolFlag{
		Name:  marketplaceFlagName,
		Usage: "hide unnamed and unpriced listings",
	}
	macaroonFlag = &cli.StringFlag{
		Name:  macaroonFlagName,
		Usage: "macaroon in hex format used for authenticated requests",
	}
)
