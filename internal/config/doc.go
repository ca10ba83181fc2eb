// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config loads the loop configuration.
//
// The default file is `.looprc` in the working directory. It is decoded as
// YAML, which also accepts the JSON documents written by earlier versions of
// the tool. Files ending in `.hcl` are decoded as HCL, with the process
// environment available as `env.NAME`. Remote files can be referenced with
// go-getter URLs such as `git::https://example.com/repo//looprc.yaml`.
//
// Recognised fields are `directories`, `ignore`, `verbose`, `silent` and
// `parallel`, plus the execution tuning fields `timeout`, `max_parallel` and
// `fail_fast`. Unknown fields are ignored and missing fields keep their defaults.
package config
