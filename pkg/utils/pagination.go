package utils

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

const (
	defaultLimit = 50
	maxLimit     = 100
)

func (p *Pagination) SetLimit(queryLimit string) error {
	if queryLimit == "" {
		p.Limit = defaultLimit
		return nil
	}
	limit, err := strconv.Atoi(queryLimit)
	if err != nil || limit <= 0 {
		return fmt.Errorf("invalid limit: %q", queryLimit)
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	p.Limit = limit
	return nil
}

func (p *Pagination) SetOffset(queryOffset string) error {
	if queryOffset == "" {
		p.Offset = 0
		return nil
	}
	offset, err := strconv.Atoi(queryOffset)
	if err != nil || offset < 0 {
		return fmt.Errorf("invalid offset: %q", queryOffset)
	}
	p.Offset = offset
	return nil
}

func (p *Pagination) GetLimit() int {
	return p.Limit
}

func (p *Pagination) GetOffset() int {
	return p.Offset
}

func GetPaginationFromCtx(ctx echo.Context) (*Pagination, error) {
	p := &Pagination{}

	if err := p.SetLimit(ctx.QueryParam("limit")); err != nil {
		return nil, err
	}
	if err := p.SetOffset(ctx.QueryParam("offset")); err != nil {
		return nil, err
	}
	return p, nil
}
