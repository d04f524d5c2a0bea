package command

import (
	"errors"
	"strings"
	"testing"
)

func TestParseProgram(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Program
		wantErr bool
	}{
		{"FFmpeg", "ffmpeg", ProgramFFmpeg, false},
		{"FFprobe", "ffprobe", ProgramFFprobe, false},
		{"Uppercase", "FFMPEG", ProgramFFmpeg, false},
		{"Whitespace", "  ffprobe ", ProgramFFprobe, false},
		{"Unknown", "sox", "", true},
		{"Empty", "", "", true},
		{"Path smuggling", "/usr/bin/ffmpeg", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProgram(tt.input)
			if tt.wantErr {
				var schemaErr *SchemaError
				if !errors.As(err, &schemaErr) {
					t.Fatalf("ParseProgram(%q) error = %v, want SchemaError", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProgram(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseProgram(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseOutputExt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    OutputExt
		wantErr bool
	}{
		{"MP3", "mp3", OutputExt("mp3"), false},
		{"With dot", ".mp4", OutputExt("mp4"), false},
		{"Sentinel", "none", OutputNone, false},
		{"Empty means none", "", OutputNone, false},
		{"Unknown", "exe", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOutputExt(tt.input)
			if tt.wantErr {
				var schemaErr *SchemaError
				if !errors.As(err, &schemaErr) {
					t.Fatalf("ParseOutputExt(%q) error = %v, want SchemaError", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOutputExt(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseOutputExt(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCheckPolicy_ForbiddenInputFlag(t *testing.T) {
	// The forbidden token is rejected for every program value.
	for _, prog := range []Program{ProgramFFmpeg, ProgramFFprobe} {
		d := Descriptor{
			Program:   prog,
			Args:      []string{"-vn", "-i", "second.mp4"},
			OutputExt: OutputNone,
		}
		err := d.CheckPolicy()
		var policyErr *PolicyError
		if !errors.As(err, &policyErr) {
			t.Errorf("CheckPolicy for %s with -i = %v, want PolicyError", prog, err)
		}
	}
}

func TestCheckPolicy_FFprobeWithOutputExt(t *testing.T) {
	d := Descriptor{Program: ProgramFFprobe, Args: []string{"-show_format"}, OutputExt: OutputExt("mp3")}
	var policyErr *PolicyError
	if !errors.As(d.CheckPolicy(), &policyErr) {
		t.Error("ffprobe with a file output extension should be a policy violation")
	}
}

func TestCheckPolicy_Valid(t *testing.T) {
	d := Descriptor{
		Program:   ProgramFFmpeg,
		Args:      []string{"-vn", "-acodec", "libmp3lame"},
		OutputExt: OutputExt("mp3"),
	}
	if err := d.CheckPolicy(); err != nil {
		t.Errorf("valid descriptor rejected: %v", err)
	}
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name   string
		desc   Descriptor
		input  string
		output string
		want   string
	}{
		{
			name:   "Transcode to file",
			desc:   Descriptor{Program: ProgramFFmpeg, Args: []string{"-vn", "-acodec", "libmp3lame"}, OutputExt: "mp3"},
			input:  "/in/clip.mp4",
			output: "/tmp/out.mp3",
			want:   "ffmpeg -i /in/clip.mp4 -vn -acodec libmp3lame /tmp/out.mp3",
		},
		{
			name:  "No output sentinel uses null muxer",
			desc:  Descriptor{Program: ProgramFFmpeg, Args: []string{"-af", "volumedetect"}, OutputExt: OutputNone},
			input: "/in/song.wav",
			want:  "ffmpeg -i /in/song.wav -af volumedetect -f null -",
		},
		{
			name:  "Probe appends nothing",
			desc:  Descriptor{Program: ProgramFFprobe, Args: []string{"-show_format"}, OutputExt: OutputNone},
			input: "/in/song.wav",
			want:  "ffprobe -i /in/song.wav -show_format",
		},
		{
			name:   "No model args",
			desc:   Descriptor{Program: ProgramFFmpeg, Args: nil, OutputExt: "wav"},
			input:  "/in/a.mp3",
			output: "/tmp/a.wav",
			want:   "ffmpeg -i /in/a.mp3 /tmp/a.wav",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Line(Assemble(tt.desc, tt.input, tt.output))
			if got != tt.want {
				t.Errorf("Assemble() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssembleDeterministic(t *testing.T) {
	d := Descriptor{Program: ProgramFFmpeg, Args: []string{"-ss", "10", "-t", "5"}, OutputExt: "mp4"}
	first := Line(Assemble(d, "/in/v.mp4", "/tmp/x.mp4"))
	for i := 0; i < 10; i++ {
		if got := Line(Assemble(d, "/in/v.mp4", "/tmp/x.mp4")); got != first {
			t.Fatalf("assembly not deterministic: %q vs %q", got, first)
		}
	}
	if !strings.HasPrefix(first, "ffmpeg -i /in/v.mp4 ") {
		t.Errorf("argument order broken: %q", first)
	}
}
