// Command template2video renders video templates into mp4 files, previews
// and thumbnails.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/template2video/internal/config"
	"github.com/ivlev/template2video/internal/engine"
	"github.com/ivlev/template2video/internal/publish"
	"github.com/ivlev/template2video/internal/scene"
	"github.com/ivlev/template2video/internal/system"
	"github.com/ivlev/template2video/internal/video"
)

var version = "dev"

func main() {
	modePtr := flag.String("mode", "render", "Режим: render, preview, thumbnail")
	configPtr := flag.String("config", "", "Путь к YAML-конфигурации движка")
	templatePtr := flag.String("template", "", "Путь к шаблону (по умолчанию: самый свежий файл в input/templates/)")
	dataPtr := flag.String("data", "", "YAML/JSON-файл со значениями для плейсхолдеров")
	outputPtr := flag.String("output", "", "Путь к видео или s3://bucket/key (если пусто, генерируется автоматически)")
	qualityPtr := flag.String("quality", "medium", "Качество: low, medium, high")
	audioPtr := flag.String("audio", "", "Путь к аудио (по умолчанию: самый свежий файл в input/audio/)")
	noAudioPtr := flag.Bool("no-audio", false, "Не добавлять аудиодорожку")
	volumePtr := flag.Float64("volume", 1, "Громкость аудио")
	previewPtr := flag.Float64("preview-duration", 6, "Желаемая длительность превью (сек)")
	scenePtr := flag.Int("scene", 0, "Индекс сцены для миниатюры")
	statsPtr := flag.Bool("stats", false, "Показать отчет о производительности")
	verbosePtr := flag.Bool("verbose", false, "Подробный вывод")
	values := dataFlags{}
	flag.Var(values, "set", "Значение плейсхолдера key=value (можно повторять)")

	flag.Parse()

	logger := newLogger(*verbosePtr)
	defer logger.Sync()

	system.InitResourceLimits(logger)

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}
	cfg.BuildVersion = version
	cfg.ShowStats = cfg.ShowStats || *statsPtr

	for _, d := range []string{"input/templates", "input/audio", cfg.WorkDir} {
		os.MkdirAll(d, 0755)
	}

	templatePath := *templatePtr
	if templatePath == "" {
		latest, err := system.FindLatestTemplate("input/templates")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите шаблон в input/templates/", err)
		}
		templatePath = latest
		fmt.Printf("[*] Выбран шаблон: %s\n", templatePath)
	}

	tmpl, err := scene.ReadTemplate(templatePath)
	if err != nil {
		log.Fatalf("[-] Ошибка чтения шаблона: %v", err)
	}

	data, err := loadData(*dataPtr, values)
	if err != nil {
		log.Fatalf("[-] Ошибка чтения данных: %v", err)
	}

	encoderName := cfg.VideoEncoder
	if encoderName == "" {
		encoderName = system.GetBestH264Encoder()
		if encoderName != video.CodecX264 {
			fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", encoderName)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pub engine.Publisher
	if publish.IsS3URI(*outputPtr) {
		pub, err = publish.NewS3Publisher(ctx, publish.S3Config{
			Region:       cfg.S3.Region,
			Profile:      cfg.S3.Profile,
			UsePathStyle: cfg.S3.UsePathStyle,
		}, logger)
		if err != nil {
			log.Fatalf("[-] Ошибка инициализации S3: %v", err)
		}
	}

	project := engine.NewProject(cfg, video.NewFFmpegEncoder(encoderName, logger), pub, logger)

	switch *modePtr {
	case "render":
		opts := scene.RenderOptions{
			Output:  *outputPtr,
			Quality: scene.Quality(*qualityPtr),
		}
		if opts.Output == "" {
			opts.Output = defaultOutput(cfg.WorkDir, tmpl.Name)
		}
		if !*noAudioPtr {
			opts.Audio = pickAudio(*audioPtr, *volumePtr)
		}

		out, err := project.Render(ctx, tmpl, data, opts)
		if err != nil {
			log.Fatalf("[-] Ошибка рендера: %v", err)
		}
		fmt.Printf("[+++] Успех! Результат: %s\n", out)

	case "preview":
		out, err := project.Preview(ctx, tmpl, data, *previewPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка превью: %v", err)
		}
		fmt.Printf("[+++] Превью готово: %s\n", out)

	case "thumbnail":
		out := *outputPtr
		if out == "" {
			out = filepath.Join(cfg.WorkDir, fmt.Sprintf("%s_scene%d.png", cleanName(tmpl.Name), *scenePtr))
		}
		if err := project.SaveThumbnail(tmpl, data, *scenePtr, out); err != nil {
			log.Fatalf("[-] Ошибка миниатюры: %v", err)
		}
		fmt.Printf("[+++] Миниатюра готова: %s\n", out)

	default:
		log.Fatalf("[-] Неизвестный режим: %s", *modePtr)
	}
}

func newLogger(verbose bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("[-] Ошибка инициализации логгера: %v", err)
	}
	return logger
}

func pickAudio(path string, volume float64) *scene.AudioTrack {
	if path == "" {
		latest, err := system.FindLatestAudio("input/audio")
		if err != nil {
			return nil
		}
		path = latest
		fmt.Printf("[*] Выбрано аудио: %s\n", path)
	}
	return &scene.AudioTrack{Enabled: true, Src: path, Volume: &volume}
}

func defaultOutput(dir, name string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("%s_%s.mp4", cleanName(name), timestamp))
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "video"
	}
	return strings.ReplaceAll(name, " ", "_")
}
