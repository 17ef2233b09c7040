package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"excel2dataverse/internal/app"
	"excel2dataverse/internal/dataverse"
	"excel2dataverse/internal/metrics"
	"excel2dataverse/ioc"
)

const confirmPrompt = "¿Está seguro de que desea iniciar la migración de datos de Excel a Dataverse? (s/n): "

type clientFactory func(app.Config) (dataverse.Client, error)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, ioc.InitDataverseClient))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, newClient clientFactory) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var configPath string
	fs.StringVar(&configPath, "config", "configs/config.yaml", "配置文件路径")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return 1
	}
	logger, err := ioc.InitLogger(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "构建 logger 失败: %v\n", err)
		return 1
	}
	defer logger.Sync()

	fmt.Fprint(stdout, confirmPrompt)
	answer, _ := bufio.NewReader(stdin).ReadString('\n')
	if strings.TrimSpace(strings.ToLower(answer)) != "s" {
		fmt.Fprintln(stdout, "Migración cancelada por el usuario.")
		return 0
	}

	client, err := newClient(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "构建 Dataverse 客户端失败: %v\n", err)
		return 1
	}
	svc, err := ioc.InitAppService(cfg, client, logger)
	if err != nil {
		fmt.Fprintf(stderr, "构建服务失败: %v\n", err)
		return 1
	}
	defer svc.Close()

	report, err := svc.Migrate(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "迁移中断: %v\n", err)
	}
	printReport(stdout, report, svc.ErrorLogPath())

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			fmt.Fprintf(stderr, "写入指标文件失败: %v\n", err)
		}
	}
	return 0
}

func printReport(w io.Writer, report app.Report, errorLog string) {
	fmt.Fprintln(w, "==============================================")
	for _, o := range report.Outcomes {
		switch {
		case o.Skipped:
			fmt.Fprintf(w, "%-14s omitido: %s\n", o.Entity, o.SkipReason)
		case o.Err != nil:
			fmt.Fprintf(w, "%-14s error crítico: %v\n", o.Entity, o.Err)
		default:
			fmt.Fprintf(w, "%-14s %d exitosos, %d errores\n", o.Entity, o.Succeeded, o.Failed)
		}
	}
	_, succeeded, failed := report.Totals()
	fmt.Fprintf(w, "Total: %d exitosos, %d errores\n", succeeded, failed)
	if failed > 0 {
		fmt.Fprintf(w, "Revise el archivo '%s' para ver los errores.\n", errorLog)
	}
	fmt.Fprintln(w, "==============================================")
}
