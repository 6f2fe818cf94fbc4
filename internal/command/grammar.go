package command

// ImageStyles are the styles accepted by /gambar and /komik.
var ImageStyles = []string{
	"cinematic",
	"photorealistic",
	"fantasy",
	"anime",
	"cartoon",
	"comicbook",
	"pixelart",
	"cyberpunk",
	"synthwave",
	"vaporwave",
	"steampunk",
	"vintage",
	"darkmode",
	"abstract",
}

var (
	WallpaperAspects     = []string{"16:9", "9:16"}
	PlaceholderThemes    = []string{"dark", "light", "vibrant", "corporate", "nature"}
	PlaceholderStyles    = []string{"geometric", "organic", "futuristic", "retro", "minimalist"}
	PlaceholderLayouts   = []string{"center", "left"}
	PlaceholderPositions = []string{"left", "right", "top", "bottom"}
	VideoAspects         = []string{"16:9", "9:16"}
	VideoResolutions     = []string{"720p", "1080p"}
	VideoQualities       = []string{"high", "fast"}
)

const imageStyleMessage = "Gaya gambar tidak valid. Coba salah satu dari: %s"

var (
	imageGrammar = NewGrammar("/gambar",
		FlagSpec{Name: "style", Type: FlagEnum, Allowed: ImageStyles, Message: imageStyleMessage},
		FlagSpec{Name: "quality", Type: FlagInt, Min: 1, Max: 4, Message: "Kualitas gambar tidak valid. Pilih dari: %s"},
		FlagSpec{Name: "width", Type: FlagString},
		FlagSpec{Name: "height", Type: FlagString},
		FlagSpec{Name: "aspect", Type: FlagString},
	)

	wallpaperGrammar = NewGrammar("/wallpaper",
		FlagSpec{Name: "aspect", Type: FlagEnum, Allowed: WallpaperAspects,
			Message: "Rasio aspek tidak valid untuk wallpaper. Pilih '16:9' (desktop) atau '9:16' (mobile)."},
	)

	comicGrammar = NewGrammar("/komik",
		FlagSpec{Name: "style", Type: FlagEnum, Allowed: ImageStyles, Message: imageStyleMessage},
	)

	placeholderGrammar = NewGrammar("/placeholder",
		FlagSpec{Name: "subtitle", Type: FlagString},
		FlagSpec{Name: "theme", Type: FlagEnum, Allowed: PlaceholderThemes, Message: "Tema tidak valid. Pilih dari: %s"},
		FlagSpec{Name: "style", Type: FlagEnum, Allowed: PlaceholderStyles, Message: "Gaya tidak valid. Pilih dari: %s"},
		FlagSpec{Name: "icon", Type: FlagString},
		FlagSpec{Name: "layout", Type: FlagEnum, Allowed: PlaceholderLayouts, Message: "Tata letak tidak valid. Pilih dari: %s"},
		FlagSpec{Name: "icon-position", Type: FlagEnum, Allowed: PlaceholderPositions, Message: "Posisi ikon tidak valid. Pilih dari: %s"},
	)

	videoGrammar = NewGrammar("/video",
		FlagSpec{Name: "aspect", Type: FlagEnum, Allowed: VideoAspects, Message: "Rasio aspek video tidak valid. Pilih dari: %s"},
		FlagSpec{Name: "res", Type: FlagEnum, Allowed: VideoResolutions, Message: "Resolusi video tidak valid. Pilih dari: %s"},
		FlagSpec{Name: "quality", Type: FlagEnum, Allowed: VideoQualities, Message: "Kualitas video tidak valid. Pilih dari: %s"},
	)
)

// NormalizeImageStyle validates style against ImageStyles and returns its
// canonical spelling.
func NormalizeImageStyle(style string) (string, error) {
	v, err := validateFlag("/komik", mustLookup(comicGrammar, "style"), style)
	if err != nil {
		return "", err
	}
	return v.Raw, nil
}

func mustLookup(g Grammar, name string) FlagSpec {
	spec, ok := g.Lookup(name)
	if !ok {
		panic("command: missing flag spec " + name)
	}
	return spec
}

func decodeImageFlags(f Flags) *ImageFlags {
	quality, _ := f.Int("quality")
	return &ImageFlags{
		Style:   f.String("style"),
		Quality: quality,
		Width:   f.String("width"),
		Height:  f.String("height"),
		Aspect:  f.String("aspect"),
	}
}

func decodeWallpaperFlags(f Flags) *WallpaperFlags {
	return &WallpaperFlags{Aspect: f.StringOr("aspect", "16:9")}
}

func decodePlaceholderFlags(f Flags) *PlaceholderFlags {
	return &PlaceholderFlags{
		Subtitle:     f.String("subtitle"),
		Theme:        f.StringOr("theme", "dark"),
		Style:        f.StringOr("style", "geometric"),
		Icon:         f.String("icon"),
		Layout:       f.StringOr("layout", "center"),
		IconPosition: f.StringOr("icon-position", "left"),
	}
}

func decodeVideoFlags(f Flags) *VideoFlags {
	return &VideoFlags{
		Aspect:     f.StringOr("aspect", "16:9"),
		Resolution: f.StringOr("res", "720p"),
		Quality:    f.StringOr("quality", "high"),
	}
}
