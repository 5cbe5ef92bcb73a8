package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mossi_registry/client"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"
)

var flagServerUrl = &cli.StringFlag{
	Name:    "url",
	Value:   "http://127.0.0.1:8000",
	Usage:   "Registry server to talk to",
	EnvVars: []string{"MOSSI_URL"},
}
var flagEmail = &cli.StringFlag{
	Name:    "email",
	Usage:   "Admin email used for commands that modify the registry",
	EnvVars: []string{"MOSSI_EMAIL"},
}
var flagPassword = &cli.StringFlag{
	Name:    "password",
	Usage:   "Admin password used for commands that modify the registry",
	EnvVars: []string{"MOSSI_PASSWORD"},
}

var artworkFlags = []cli.Flag{
	&cli.StringFlag{Name: "code", Required: true, Usage: "Certificate code printed on the artwork"},
	&cli.StringFlag{Name: "name", Required: true},
	&cli.StringFlag{Name: "collection"},
	&cli.StringFlag{Name: "dimensions"},
	&cli.StringFlag{Name: "materials"},
	&cli.StringFlag{Name: "description"},
	&cli.StringFlag{Name: "production-date"},
	&cli.StringFlag{Name: "image-url", Usage: "Url of an already hosted image"},
}

var errMissingCredentials = errors.New("--email and --password (or MOSSI_EMAIL and MOSSI_PASSWORD) are required")

const usage string = `Verify certificate codes and manage the artwork registry.

Verification is public. Listing and modifying artworks logs in with the
given admin credentials first.`

func printJson(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func newClient(cCtx *cli.Context) *client.RegistryClient {
	return client.New(cCtx.String(flagServerUrl.Name))
}

func adminClient(cCtx *cli.Context) (*client.RegistryClient, error) {
	email, password := cCtx.String(flagEmail.Name), cCtx.String(flagPassword.Name)
	if email == "" || password == "" {
		return nil, errMissingCredentials
	}

	c := newClient(cCtx)
	if _, err := c.Login(email, password); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return c, nil
}

func artworkFieldsFromFlags(cCtx *cli.Context) client.ArtworkFields {
	return client.ArtworkFields{
		Code:           cCtx.String("code"),
		Name:           cCtx.String("name"),
		Collection:     cCtx.String("collection"),
		Dimensions:     cCtx.String("dimensions"),
		Materials:      cCtx.String("materials"),
		Description:    cCtx.String("description"),
		ProductionDate: cCtx.String("production-date"),
		ImageUrl:       cCtx.String("image-url"),
	}
}

func artworkIdArg(cCtx *cli.Context) (uint, error) {
	if cCtx.NArg() != 1 {
		return 0, errors.New("expected exactly one artwork id argument")
	}
	id, err := strconv.ParseUint(cCtx.Args().First(), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid artwork id '%v'", cCtx.Args().First())
	}
	return uint(id), nil
}

func main() {
	app := &cli.App{
		Name:  "mossi",
		Usage: usage,
		Flags: []cli.Flag{
			flagServerUrl,
			flagEmail,
			flagPassword,
		},
		Commands: []*cli.Command{
			{
				Name:      "verify",
				Usage:     "Check whether a certificate code belongs to a registered artwork",
				ArgsUsage: "<code>",
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 1 {
						return errors.New("expected exactly one code argument")
					}
					result, err := newClient(cCtx).Verify(cCtx.Args().First())
					if err != nil {
						return err
					}
					return printJson(result)
				},
			},
			{
				Name:  "list",
				Usage: "List registered artworks, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Usage: "Case insensitive match on code or name"},
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.IntFlag{Name: "limit", Value: 10},
				},
				Action: func(cCtx *cli.Context) error {
					c, err := adminClient(cCtx)
					if err != nil {
						return err
					}
					page, err := c.ListArtworks(cCtx.String("search"), cCtx.Int("page"), cCtx.Int("limit"))
					if err != nil {
						return err
					}
					return printJson(page)
				},
			},
			{
				Name:  "create",
				Usage: "Register a new artwork",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "image", Usage: "Path of a png or jpeg file to upload as the artwork image"},
				}, artworkFlags...),
				Action: func(cCtx *cli.Context) error {
					c, err := adminClient(cCtx)
					if err != nil {
						return err
					}

					fields := artworkFieldsFromFlags(cCtx)

					var artwork client.Artwork
					if image := cCtx.String("image"); image != "" {
						artwork, err = c.CreateArtworkWithImage(fields, image)
					} else {
						artwork, err = c.CreateArtwork(fields)
					}
					if err != nil {
						return err
					}
					return printJson(artwork)
				},
			},
			{
				Name:      "update",
				Usage:     "Replace the fields of an artwork",
				ArgsUsage: "<artwork id>",
				Flags:     artworkFlags,
				Action: func(cCtx *cli.Context) error {
					id, err := artworkIdArg(cCtx)
					if err != nil {
						return err
					}
					c, err := adminClient(cCtx)
					if err != nil {
						return err
					}
					artwork, err := c.UpdateArtwork(id, artworkFieldsFromFlags(cCtx))
					if err != nil {
						return err
					}
					return printJson(artwork)
				},
			},
			{
				Name:      "delete",
				Usage:     "Remove an artwork from the registry",
				ArgsUsage: "<artwork id>",
				Action: func(cCtx *cli.Context) error {
					id, err := artworkIdArg(cCtx)
					if err != nil {
						return err
					}
					c, err := adminClient(cCtx)
					if err != nil {
						return err
					}
					if err := c.DeleteArtwork(id); err != nil {
						return err
					}
					fmt.Printf("deleted artwork %d\n", id)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
