// lotctl 是库存看板的命令行入口，覆盖日常盘点的全部操作：
// 登录、车辆增删改查、在场凭证标记、CSV 导入与月度归档。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/LotTrace/LotTrace/internal/common/logger"
	"github.com/LotTrace/LotTrace/internal/dashboard"
)

const defaultServer = "http://127.0.0.1:8080"

func usage() {
	fmt.Fprintf(os.Stderr, `usage: lotctl [-server URL] <command> [args]

commands:
  login -user U -password P     登录并保存会话
  logout                        退出登录
  list [filters]                车辆列表
  stats [-month M -year Y]      库存统计
  months                        有入库记录的月份
  add [fields]                  新建车辆
  show <id>                     车辆详情
  edit <id> [fields]            更新车辆
  delete <id>                   删除车辆
  delete-all -confirm <词>      清空库存（admin，需确认词）
  mark-present <id> -car-photo F -vin-photo F   标记在场（双照片凭证）
  mark-absent <id>              标记不在场
  import-csv <file>             CSV 批量导入
  archive <create|list|show|delete|delete-all>  月度归档
  users <list|create|delete>    账号管理（admin）
`)
	os.Exit(2)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "lotctl:", err)
	os.Exit(1)
}

func sessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lotctl-session.json"
	}
	return filepath.Join(home, ".lotctl", "session.json")
}

func main() {
	serverURL := flag.String("server", defaultServer, "库存服务地址")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}

	log, err := logger.NewLogger("warn", "text", "stdout", "")
	if err != nil {
		fatal(err)
	}

	client := dashboard.NewClient(*serverURL, 15*time.Second)
	store := dashboard.NewSessionStore(sessionPath())
	client.Resume(store)

	queries := dashboard.NewQueryService(client, log)
	presence := dashboard.NewPresenceFlow(client, queries)
	imports := dashboard.NewCSVImportFlow(client, queries, log)
	archives := dashboard.NewArchiveFlow(client, queries, log)

	ctx := context.Background()
	cmd, args := flag.Arg(0), flag.Args()[1:]

	switch cmd {
	case "login":
		runLogin(ctx, client, store, args)
	case "logout":
		if err := client.Logout(store); err != nil {
			fatal(err)
		}
		fmt.Println("logged out")
	case "list":
		runList(ctx, queries, args)
	case "stats":
		runStats(ctx, queries, args)
	case "months":
		runMonths(ctx, queries)
	case "add":
		runAdd(ctx, client, args)
	case "show":
		if len(args) != 1 {
			usage()
		}
		runShow(ctx, client, args[0])
	case "edit":
		runEdit(ctx, client, args)
	case "delete":
		if len(args) != 1 {
			usage()
		}
		if err := client.DeleteCar(ctx, args[0]); err != nil {
			fatal(err)
		}
		fmt.Println("car deleted")
	case "delete-all":
		fs := flag.NewFlagSet("delete-all", flag.ExitOnError)
		confirm := fs.String("confirm", "", "删除确认词，必须逐字输入 "+dashboard.DeleteConfirmPhrase)
		_ = fs.Parse(args)
		n, err := client.DeleteAllCars(ctx, *confirm)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("deleted %d cars\n", n)
	case "mark-present":
		runMarkPresent(ctx, presence, args)
	case "mark-absent":
		if len(args) != 1 {
			usage()
		}
		c, err := presence.MarkAbsent(ctx, args[0])
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%s %s marked absent\n", c.Make, c.Model)
	case "import-csv":
		runImportCSV(ctx, imports, args)
	case "archive":
		runArchive(ctx, archives, args)
	case "users":
		runUsers(ctx, client, args)
	default:
		usage()
	}
}

func runLogin(ctx context.Context, client *dashboard.Client, store *dashboard.SessionStore, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("user", "", "用户名")
	password := fs.String("password", "", "密码")
	_ = fs.Parse(args)
	if *username == "" || *password == "" {
		fatal(fmt.Errorf("login requires -user and -password"))
	}
	s, err := client.Login(ctx, store, *username, *password)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("logged in as %s (%s)\n", s.User.Username, s.User.Role)
}

func listFilterFlags(fs *flag.FlagSet) *dashboard.QueryFilter {
	f := &dashboard.QueryFilter{}
	fs.StringVar(&f.Search, "search", "", "按品牌/型号/VIN/编号搜索")
	fs.StringVar(&f.Status, "status", "all", "present / absent / all")
	fs.StringVar(&f.Consignment, "consignment", "all", "true / false / all")
	fs.IntVar(&f.Month, "month", 0, "入库月份（与 -year 成对）")
	fs.IntVar(&f.Year, "year", 0, "入库年份（与 -month 成对）")
	return f
}

func runList(ctx context.Context, queries *dashboard.QueryService, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	f := listFilterFlags(fs)
	_ = fs.Parse(args)

	ov, err := queries.Refresh(ctx, *f)
	if err != nil {
		fatal(err)
	}
	for _, c := range ov.Cars {
		date := ""
		if c.PurchaseDate != nil {
			date = c.PurchaseDate.Format("2006-01-02")
		}
		tag := ""
		if c.IsConsignment {
			tag = " [consignment]"
		}
		fmt.Printf("%s  %-10s %-12s %-10s %-8s %s%s\n", c.ID, c.Make, c.Model, c.Number, c.Status, date, tag)
	}
	if ov.Stats != nil {
		s := ov.Stats
		fmt.Printf("\n%d cars, %d present (%.1f%%), %d absent\n", s.TotalCars, s.PresentCars, s.PresentPercentage, s.AbsentCars)
	}
}

func runStats(ctx context.Context, queries *dashboard.QueryService, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	month := fs.Int("month", 0, "月份")
	year := fs.Int("year", 0, "年份")
	_ = fs.Parse(args)

	s, err := queries.Stats(ctx, *month, *year)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("total:        %d\n", s.TotalCars)
	fmt.Printf("present:      %d (%.1f%%)\n", s.PresentCars, s.PresentPercentage)
	fmt.Printf("absent:       %d\n", s.AbsentCars)
	fmt.Printf("regular:      %d\n", s.RegularCars)
	fmt.Printf("consignment:  %d\n", s.ConsignmentCars)
}

func runMonths(ctx context.Context, queries *dashboard.QueryService) {
	months, err := queries.AvailableMonths(ctx)
	if err != nil {
		fatal(err)
	}
	for _, m := range months {
		fmt.Printf("%04d-%02d\n", m.Year, m.Month)
	}
}

func carInputFlags(fs *flag.FlagSet) *dashboard.CarInput {
	in := &dashboard.CarInput{}
	fs.StringVar(&in.Make, "make", "", "品牌")
	fs.StringVar(&in.Model, "model", "", "型号")
	fs.StringVar(&in.Number, "number", "", "内部编号/车牌")
	fs.StringVar(&in.VIN, "vin", "", "VIN")
	fs.StringVar(&in.PurchaseDate, "purchase-date", "", "入库日期 2006-01-02")
	fs.StringVar(&in.ImageURL, "image-url", "", "图片 URL")
	fs.BoolVar(&in.IsConsignment, "consignment", false, "寄售车辆")
	return in
}

func runAdd(ctx context.Context, client *dashboard.Client, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	in := carInputFlags(fs)
	_ = fs.Parse(args)

	c, err := client.CreateCar(ctx, *in)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("created %s %s (%s)\n", c.Make, c.Model, c.ID)
}

func runShow(ctx context.Context, client *dashboard.Client, id string) {
	c, err := client.GetCar(ctx, id)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("id:            %s\n", c.ID)
	fmt.Printf("make/model:    %s %s\n", c.Make, c.Model)
	fmt.Printf("number:        %s\n", c.Number)
	fmt.Printf("vin:           %s\n", c.VIN)
	if c.PurchaseDate != nil {
		fmt.Printf("purchase date: %s\n", c.PurchaseDate.Format("2006-01-02"))
	}
	fmt.Printf("status:        %s\n", c.Status)
	fmt.Printf("consignment:   %v\n", c.IsConsignment)
	if img := dashboard.DisplayDataURI(c.CarPhoto); img != "" {
		fmt.Printf("evidence:      car photo %d chars, vin photo %d chars\n", len(img), len(c.VinPhoto))
	} else if c.ImageURL != "" {
		fmt.Printf("image:         %s\n", c.ImageURL)
	}
}

func runEdit(ctx context.Context, client *dashboard.Client, args []string) {
	if len(args) < 1 {
		usage()
	}
	id := args[0]
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	in := carInputFlags(fs)
	_ = fs.Parse(args[1:])

	c, err := client.UpdateCar(ctx, id, *in)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("updated %s %s (%s)\n", c.Make, c.Model, c.ID)
}

func runMarkPresent(ctx context.Context, presence *dashboard.PresenceFlow, args []string) {
	if len(args) < 1 {
		usage()
	}
	id := args[0]
	fs := flag.NewFlagSet("mark-present", flag.ExitOnError)
	carPhoto := fs.String("car-photo", "", "车辆照片文件")
	vinPhoto := fs.String("vin-photo", "", "VIN 照片文件")
	_ = fs.Parse(args[1:])

	if err := presence.BeginEvidence(id); err != nil {
		fatal(err)
	}
	// 两个槽位独立采集，独立报错
	b64, err := dashboard.CapturePhotoFile(*carPhoto)
	if err != nil {
		fatal(fmt.Errorf("car photo: %w", err))
	}
	if err := presence.AttachCarPhoto(b64); err != nil {
		fatal(err)
	}
	b64, err = dashboard.CapturePhotoFile(*vinPhoto)
	if err != nil {
		fatal(fmt.Errorf("vin photo: %w", err))
	}
	if err := presence.AttachVinPhoto(b64); err != nil {
		fatal(err)
	}

	c, err := presence.Submit(ctx)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("%s %s marked present\n", c.Make, c.Model)
}

func runImportCSV(ctx context.Context, imports *dashboard.CSVImportFlow, args []string) {
	if len(args) != 1 {
		usage()
	}
	imports.SelectFile(args[0])
	outcome, err := imports.Import(ctx, dashboard.QueryFilter{})
	if err != nil {
		fatal(err)
	}
	fmt.Println(outcome.Message)
	for _, w := range outcome.Warnings {
		fmt.Println("warning:", w)
	}
}

func runArchive(ctx context.Context, archives *dashboard.ArchiveFlow, args []string) {
	if len(args) < 1 {
		usage()
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "create":
		fs := flag.NewFlagSet("archive create", flag.ExitOnError)
		name := fs.String("name", "", "归档名称")
		month := fs.Int("month", 0, "月份 1-12")
		year := fs.Int("year", 0, "年份")
		_ = fs.Parse(rest)
		a, err := archives.CreateMonthly(ctx, *name, *month, *year)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("archived %q with %d cars\n", a.ArchiveName, a.TotalCars)
	case "list":
		list, err := archives.List(ctx)
		if err != nil {
			fatal(err)
		}
		for _, a := range list {
			fmt.Printf("%s  %-24s %04d-%02d  %d cars (%.1f%% present)\n",
				a.ID, a.ArchiveName, a.Year, a.Month, a.TotalCars, a.PresentPercentage())
		}
	case "show":
		if len(rest) != 1 {
			usage()
		}
		a, err := archives.Get(ctx, rest[0])
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%s (%04d-%02d), archived %s\n", a.ArchiveName, a.Year, a.Month, a.ArchivedAt.Format(time.RFC3339))
		fmt.Printf("%d cars, %d present, %d absent\n", a.TotalCars, a.PresentCars, a.AbsentCars)
		for _, c := range a.CarsData {
			fmt.Printf("  %-10s %-12s %-10s %s\n", c.Make, c.Model, c.Number, c.Status)
		}
	case "delete":
		fs := flag.NewFlagSet("archive delete", flag.ExitOnError)
		confirm := fs.String("confirm", "", "删除确认词，必须逐字输入 "+dashboard.DeleteConfirmPhrase)
		_ = fs.Parse(rest)
		if fs.NArg() != 1 {
			usage()
		}
		if err := archives.Delete(ctx, fs.Arg(0), *confirm); err != nil {
			fatal(err)
		}
		fmt.Println("archive deleted")
	case "delete-all":
		fs := flag.NewFlagSet("archive delete-all", flag.ExitOnError)
		confirm := fs.String("confirm", "", "删除确认词，必须逐字输入 "+dashboard.DeleteConfirmPhrase)
		_ = fs.Parse(rest)
		n, err := archives.DeleteAll(ctx, *confirm)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("deleted %d archives\n", n)
	default:
		usage()
	}
}

func runUsers(ctx context.Context, client *dashboard.Client, args []string) {
	if len(args) < 1 {
		usage()
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		list, err := client.ListUsers(ctx)
		if err != nil {
			fatal(err)
		}
		for _, u := range list {
			fmt.Printf("%s  %-16s %s\n", u.ID, u.Username, u.Role)
		}
	case "create":
		fs := flag.NewFlagSet("users create", flag.ExitOnError)
		username := fs.String("user", "", "用户名")
		password := fs.String("password", "", "密码（至少 6 位）")
		role := fs.String("role", "user", "admin / user")
		_ = fs.Parse(rest)
		u, err := client.CreateUser(ctx, *username, *password, *role)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("created user %s (%s)\n", u.Username, u.Role)
	case "delete":
		if len(rest) != 1 {
			usage()
		}
		if err := client.DeleteUser(ctx, rest[0]); err != nil {
			fatal(err)
		}
		fmt.Println("user deleted")
	default:
		usage()
	}
}
