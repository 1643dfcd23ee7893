package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"EventSync/internal/api"
	"EventSync/internal/service"
	"EventSync/internal/venue"

	goflags "github.com/jessevdk/go-flags"
)

// GlobalOptions 所有子命令共享的参数
type GlobalOptions struct {
	Config   string   `short:"c" long:"config" description:"配置文件路径（默认 ./config/config.yaml）"`
	Sources  []string `short:"s" long:"source" description:"只运行指定来源，可重复（覆盖 sync.enabled_sources）"`
	Degraded bool     `long:"degraded" description:"不调用大模型，字段抽取全部走兜底"`
}

type IngestCommand struct {
	globals *GlobalOptions
	NoSweep bool `long:"no-sweep" description:"采集结束后不清理过期活动"`
}

type SweepCommand struct {
	globals *GlobalOptions
}

type ServeCommand struct {
	globals *GlobalOptions
}

type VenuesCommand struct{}

func newParser() *goflags.Parser {
	var globals GlobalOptions
	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "eventsync"
	parser.LongDescription = "多来源音乐活动采集：发现、字段抽取、场地解析、幂等入库。"
	parser.SubcommandsOptional = true

	ingest := &IngestCommand{globals: &globals}
	_, _ = parser.AddCommand("ingest", "执行一次全量采集", "按 sync.enabled_sources 顺序采集全部来源并打印统计表。", ingest)
	_, _ = parser.AddCommand("sweep", "清理过期活动", "将结束时间已过的活动置为失效。", &SweepCommand{globals: &globals})
	_, _ = parser.AddCommand("serve", "启动查询接口", "启动只读查询接口、手动触发采集接口、/metrics 与 pprof。", &ServeCommand{globals: &globals})
	_, _ = parser.AddCommand("venues", "打印场地库统计", "打印内置场地库的城市分布。", &VenuesCommand{})

	// 未指定子命令时默认执行 ingest
	parser.CommandHandler = func(cmd goflags.Commander, args []string) error {
		if cmd == nil {
			cmd = ingest
		}
		return cmd.Execute(args)
	}
	return parser
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute 采集失败的来源只体现在统计表中，退出码仍为0
func (c *IngestCommand) Execute(_ []string) error {
	a, err := buildApp(c.globals)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signalContext()
	defer stop()
	if a.cfg.Sync.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Sync.RunTimeout)
		defer cancel()
	}

	report, err := a.ingestion.Run(ctx)
	if err != nil {
		return err
	}
	printReport(os.Stdout, report)

	if a.geocoder != nil {
		a.logger.WithField("cached", a.geocoder.Cache().Stats().Size).Info("地理编码缓存统计")
	}
	if !c.NoSweep && ctx.Err() == nil {
		if _, err := a.ingestion.Sweep(ctx); err != nil {
			a.logger.WithError(err).Error("清理过期活动失败")
		}
	}
	return nil
}

func (c *SweepCommand) Execute(_ []string) error {
	a, err := buildApp(c.globals)
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.ingestion.Sweep(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("已失效 %d 个过期活动\n", n)
	return nil
}

func (c *ServeCommand) Execute(_ []string) error {
	a, err := buildApp(c.globals)
	if err != nil {
		return err
	}
	defer a.close()

	r := api.NewRouter(a.cfg.Server.Mode,
		api.NewEventHandler(a.repo, a.logger),
		api.NewSyncHandler(a.ingestion, a.logger),
		a.metrics.Handler(),
	)
	a.logger.Infof("Gin运行模式: %s", a.cfg.Server.Mode)

	port := a.cfg.Server.Port
	a.logger.Infof("服务启动成功，端口：%d", port)
	return r.Run(fmt.Sprintf(":%d", port))
}

func (c *VenuesCommand) Execute(_ []string) error {
	printVenueStats(os.Stdout, venue.NewResolver().Stats())
	return nil
}

func printReport(w io.Writer, report *service.RunReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tDISCOVERED\tCANDIDATES\tINSERTED\tUPDATED\tFAILED\tDEGRADED\tERROR")
	for _, p := range report.Providers {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			p.Source, p.Discovered, p.Candidates, p.Inserted, p.Updated, p.Failed, p.Degraded, p.ErrorMsg)
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%d\t%d\t%d\t\t\n",
		report.Discovered, report.Candidates, report.Total.Inserted, report.Total.Updated, report.Total.Failed)
	_ = tw.Flush()
	if report.Cancelled {
		fmt.Fprintln(w, "运行被取消，部分来源未执行")
	}
}

func printVenueStats(w io.Writer, stats venue.Stats) {
	cities := make([]string, 0, len(stats.CityCounts))
	for city := range stats.CityCounts {
		cities = append(cities, city)
	}
	sort.Strings(cities)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CITY\tVENUES")
	for _, city := range cities {
		fmt.Fprintf(tw, "%s\t%d\n", city, stats.CityCounts[city])
	}
	fmt.Fprintf(tw, "TOTAL\t%d\n", stats.TotalVenues)
	_ = tw.Flush()
}
