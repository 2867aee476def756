package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/sirupsen/logrus"
	"github.com/zclconf/go-cty/cty"

	"github.com/tie/internal/renameio"

	"github.com/tie/cmpdl"
	"github.com/tie/cmpdl/cache"
	"github.com/tie/cmpdl/fetcher"
	"github.com/tie/cmpdl/manifest"
	"github.com/tie/cmpdl/pack"
)

type SumsCommand struct {
	OutputPath string
	Zip        bool
}

func (*SumsCommand) Name() string     { return "sums" }
func (*SumsCommand) Synopsis() string { return "generate checksums of modpack files" }
func (*SumsCommand) Usage() string {
	return `Usage: cmpdl sums [-o sums.hcl] [-z] <url or zip path>

	Downloads all mods of a modpack to the cache and writes a "check"
	block with the cached checksums for each of them. Use "-o -" to
	write to stdout.

Flags:
`
}

func (cmd *SumsCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.OutputPath, "o", "sums.hcl", "output path")
	f.BoolVar(&cmd.Zip, "z", false, "use a local zip file instead of a URL")
}

func (cmd *SumsCommand) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := args[0].(*app)
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	cfg, err := a.Config()
	if err != nil {
		logrus.Errorf("load config: %+v", err)
		return subcommands.ExitFailure
	}
	c, err := openCache(cfg)
	if err != nil {
		logrus.Errorf("open cache %q: %+v", cfg.CacheDir, err)
		return subcommands.ExitFailure
	}
	defer closeCache(c)

	workDir, err := os.MkdirTemp("", "cmpdl-")
	if err != nil {
		logrus.Errorf("create work dir: %+v", err)
		return subcommands.ExitFailure
	}
	defer func() {
		err := os.RemoveAll(workDir)
		if err != nil {
			logrus.Warnf("remove %q: %+v", workDir, err)
		}
	}()

	client := newClient()
	loader := manifest.Loader{
		Client:    client,
		UserAgent: cfg.UserAgent,
	}
	src := source(f.Arg(0), cmd.Zip)
	m, err := loader.Load(ctx, src, workDir)
	if err != nil {
		logrus.Errorf("load %s: %v", src, err)
		return exitStatus(err)
	}

	fetcher := fetcher.Fetcher{
		Cache:     c,
		Client:    client,
		APIURL:    cfg.APIURL,
		APIKey:    cfg.APIKey,
		UserAgent: cfg.UserAgent,
	}

	sumsFile := hclwrite.NewEmptyFile()
	sb := SumsBuilder{
		Body: sumsFile.Body(),
	}
	mods := pack.ModList(m, pack.Filter{Exclude: cfg.Exclude})
	for _, mod := range mods {
		rf, err := fetcher.Fetch(ctx, mod)
		if err != nil {
			logrus.Errorf("fetch %s: %v", mod, err)
			return exitStatus(err)
		}
		sums, err := c.Sums(cache.Key{ProjectID: mod.ProjectID, FileID: mod.FileID})
		if err != nil {
			logrus.Errorf("sum %s: %+v", mod, err)
			return subcommands.ExitFailure
		}
		if len(sums) <= 0 {
			continue
		}
		sb.Add(rf, sums)
	}

	outSrc := sumsFile.Bytes()
	if cmd.OutputPath == "-" {
		if _, err := os.Stdout.Write(outSrc); err != nil {
			logrus.Errorf("write sums: %+v", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	fpath := cmd.OutputPath
	if err := renameio.WriteFile(fpath, outSrc, 0644); err != nil {
		logrus.Errorf("write file %q: %+v", fpath, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// SumsBuilder appends check blocks to an HCL body.
type SumsBuilder struct {
	*hclwrite.Body
	Length int
}

func (b *SumsBuilder) Add(rf cmpdl.ResolvedFile, sums []string) {
	if b.Length > 0 {
		b.AppendNewline()
	}
	b.Length++

	block := b.AppendNewBlock("check", nil)
	body := block.Body()

	body.SetAttributeValue("file", cty.StringVal(rf.FileName))
	body.SetAttributeValue("projectID", cty.NumberIntVal(int64(rf.Entry.ProjectID)))
	body.SetAttributeValue("fileID", cty.NumberIntVal(int64(rf.Entry.FileID)))

	vals := make([]cty.Value, len(sums))
	for i, sum := range sums {
		vals[i] = cty.StringVal(sum)
	}
	body.SetAttributeValue("sums", cty.ListVal(vals))
}
