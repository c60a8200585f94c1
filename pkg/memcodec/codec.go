// Package memcodec implements a net/rpc server codec that serves a
// single in memory call.
package memcodec

import (
	"errors"
	"fmt"
	"net/rpc"
	"reflect"
)

// Codec is an in memory net/rpc codec for a single call.
type Codec struct {
	// Error is the error returned by the rpc response.
	Error error

	method string
	args   interface{}
	reply  interface{}
	read   bool
}

// New returns an in memory codec calling method with args, writing
// the response into reply.
func New(method string, args, reply interface{}) *Codec {
	return &Codec{
		method: method,
		args:   args,
		reply:  reply,
	}
}

// ReadRequestHeader reads the request header. Only one request can be
// read from the codec.
func (c *Codec) ReadRequestHeader(req *rpc.Request) error {
	if c.read {
		return errors.New("memcodec: request already read")
	}
	c.read = true

	req.ServiceMethod = c.method
	return nil
}

// ReadRequestBody reads the request body.
func (c *Codec) ReadRequestBody(args interface{}) error {
	if args == nil {
		// The server discards the body of an invalid request.
		return nil
	}

	return assign(args, c.args)
}

// WriteResponse writes the response.
func (c *Codec) WriteResponse(resp *rpc.Response, reply interface{}) error {
	if resp.Error != "" {
		c.Error = errors.New(resp.Error)
		return nil
	}

	return assign(c.reply, reply)
}

// Close closes the codec.
func (c *Codec) Close() error {
	return nil
}

func assign(dst, src interface{}) error {
	d := reflect.Indirect(reflect.ValueOf(dst))
	s := reflect.Indirect(reflect.ValueOf(src))
	if !d.CanSet() {
		return fmt.Errorf("memcodec: cannot assign to %T", dst)
	}
	if !s.Type().AssignableTo(d.Type()) {
		return fmt.Errorf("memcodec: cannot assign %T to %T", src, dst)
	}

	d.Set(s)
	return nil
}
