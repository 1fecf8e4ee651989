// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strings"
)

func Example() {
	cacheSize, _ := Read(
		context.Background(),
		Default(256, IntFromString(Env("RAMPART_SCHEMA_CACHE_SIZE"))),
	)

	maxBodyBytes, _ := Read(
		context.Background(),
		Default(1<<20, Int64FromBytes(binary.BigEndian, ReaderOf(bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 4, 0})))),
	)

	fmt.Println(cacheSize)
	fmt.Println(maxBodyBytes)
	// Output:
	// 256
	// 1024
}

func ExampleUnmarshalJSON() {
	type ValidationConfig struct {
		Spec      string `json:"spec"`
		CacheSize int    `json:"cache_size"`
		Disabled  bool   `json:"disabled"`
	}

	cfgReader := UnmarshalJSON[ValidationConfig](ReaderOf(strings.NewReader(`{
  "spec": "openapi.yaml",
  "cache_size": 64,
  "disabled": false
}`)))

	cfg, _ := Read(context.Background(), cfgReader)

	fmt.Println("spec:", cfg.Spec)
	fmt.Println("cache_size:", cfg.CacheSize)
	fmt.Println("disabled:", cfg.Disabled)

	// Output:
	// spec: openapi.yaml
	// cache_size: 64
	// disabled: false
}

func ExampleUnmarshalYAML() {
	type ValidationConfig struct {
		Spec      string `yaml:"spec"`
		CacheSize int    `yaml:"cache_size"`
		Disabled  bool   `yaml:"disabled"`
	}

	cfgReader := UnmarshalYAML[ValidationConfig](ReaderOf(strings.NewReader(`spec: openapi.yaml
cache_size: 64
disabled: true
`)))

	cfg, _ := Read(context.Background(), cfgReader)

	fmt.Println("spec:", cfg.Spec)
	fmt.Println("cache_size:", cfg.CacheSize)
	fmt.Println("disabled:", cfg.Disabled)

	// Output:
	// spec: openapi.yaml
	// cache_size: 64
	// disabled: true
}
